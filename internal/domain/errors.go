package domain

import "errors"

// Sentinel errors for the engine's failure taxonomy. Everything except
// UNKNOWN-phase recovery is surfaced to the caller rather than guessed around.
var (
	// ErrNotFound maps to a 404 at the interface boundary.
	ErrNotFound = errors.New("not found")

	// ErrUnparseableRoll is a dice-input parse failure; session state is untouched.
	ErrUnparseableRoll = errors.New("unparseable roll")

	// ErrUnknownPatchType rejects narrator patches outside the closed actor/location set.
	ErrUnknownPatchType = errors.New("unknown patch type")

	// ErrGenerationInProgress rejects a concurrent turn on the same game.
	ErrGenerationInProgress = errors.New("generation already in progress for this game")
)

// NarratorError is a narrator contract violation (missing narration, malformed
// JSON, or a roll-and-choices conflict). Retryable violations may be retried
// once at the narrator boundary before being surfaced.
type NarratorError struct {
	Message   string
	Retryable bool
	Err       error
}

func (e *NarratorError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *NarratorError) Unwrap() error { return e.Err }

// NewNarratorError wraps a contract violation.
func NewNarratorError(message string, retryable bool, cause error) *NarratorError {
	return &NarratorError{Message: message, Retryable: retryable, Err: cause}
}
