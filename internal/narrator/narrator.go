// Package narrator defines the contract with the external AI narrator and an
// OpenAI-compatible client implementation. The engine depends only on the
// interfaces here; everything behind them (model, prompting, retrieval) is an
// external collaborator.
package narrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"soloplay-server/internal/domain"
)

// Request carries the structured context for a narrator invocation. Exactly
// one of PlayerInput, RollResult, or RecentEvents is meaningful per mode.
type Request struct {
	GameID          string
	AdventureName   string
	CurrentLocation string
	// Party holds one rendered roster line per member, e.g. "Mira (Level 3 Rogue)".
	Party []string

	PlayerInput  string
	RollResult   *domain.RollResult
	RecentEvents string
}

// Response is the narrator's structured reply, shared by all four invocation
// modes.
type Response struct {
	Narration        string              `json:"narration"`
	TurnSummary      string              `json:"turnSummary,omitempty"`
	CurrentLocation  string              `json:"currentLocation,omitempty"`
	PendingRoll      *domain.PendingRoll `json:"pendingRoll,omitempty"`
	PlayerChoices    []string            `json:"playerChoices,omitempty"`
	Patches          []domain.Patch      `json:"patches,omitempty"`
	ActorsPresent    []string            `json:"actorsPresent,omitempty"`
	LocationsPresent []string            `json:"locationsPresent,omitempty"`
	Sources          []string            `json:"sources,omitempty"`
}

// Narrator runs the four turn-processing invocation modes.
type Narrator interface {
	// SceneStart opens the adventure; invoked once, when no history exists.
	SceneStart(ctx context.Context, req Request) (*Response, error)
	// Recap summarizes recent events when a session resumes.
	Recap(ctx context.Context, req Request) (*Response, error)
	// Turn processes free-text player input.
	Turn(ctx context.Context, req Request) (*Response, error)
	// ResolveRoll narrates the outcome of a resolved roll.
	ResolveRoll(ctx context.Context, req Request) (*Response, error)
}

// CreationResponse is the narrator's reply during character creation: free
// text plus an optional incremental draft patch.
type CreationResponse struct {
	MessageMarkdown string                `json:"messageMarkdown"`
	Patch           *domain.CreationPatch `json:"patch,omitempty"`
}

// CharacterCreator guides the character-creation conversation.
type CharacterCreator interface {
	// Start opens the character-creation conversation for an empty draft.
	Start(ctx context.Context, gameID, adventureName string) (*CreationResponse, error)
	// Refine advances the conversation with the current draft as context.
	Refine(ctx context.Context, gameID, adventureName string, draft *domain.PlayerActorDraft, playerInput string) (*CreationResponse, error)
}

// responseWire defers patch decoding so unknown patch types can be dropped
// without failing the whole response.
type responseWire struct {
	Narration        string              `json:"narration"`
	TurnSummary      string              `json:"turnSummary"`
	CurrentLocation  string              `json:"currentLocation"`
	PendingRoll      *domain.PendingRoll `json:"pendingRoll"`
	PlayerChoices    []string            `json:"playerChoices"`
	Patches          []json.RawMessage   `json:"patches"`
	ActorsPresent    []string            `json:"actorsPresent"`
	LocationsPresent []string            `json:"locationsPresent"`
	Sources          []string            `json:"sources"`
}

// ParseResponse decodes and validates a raw narrator reply.
//
// Contract violations: blank input or missing narration (retryable), malformed
// JSON (retryable), and a reply carrying both a pending roll and player
// choices (retryable). Patches with an unknown type tag are dropped rather
// than silently accepted; drops are reported via the returned slice of
// warnings so callers can log them.
func ParseResponse(raw string) (*Response, []string, error) {
	trimmed := stripCodeFences(raw)
	if trimmed == "" {
		return nil, nil, domain.NewNarratorError("empty response from narrator", true, nil)
	}

	var wire responseWire
	if err := json.Unmarshal([]byte(trimmed), &wire); err != nil {
		return nil, nil, domain.NewNarratorError("malformed JSON from narrator", true, err)
	}
	if strings.TrimSpace(wire.Narration) == "" {
		return nil, nil, domain.NewNarratorError("narration was missing", true, nil)
	}
	if wire.PendingRoll != nil && len(wire.PlayerChoices) > 0 {
		return nil, nil, domain.NewNarratorError("response offers both a pending roll and player choices", true, nil)
	}

	resp := &Response{
		Narration:        wire.Narration,
		TurnSummary:      wire.TurnSummary,
		CurrentLocation:  wire.CurrentLocation,
		PendingRoll:      wire.PendingRoll,
		PlayerChoices:    wire.PlayerChoices,
		ActorsPresent:    wire.ActorsPresent,
		LocationsPresent: wire.LocationsPresent,
		Sources:          wire.Sources,
	}

	var warnings []string
	for _, rawPatch := range wire.Patches {
		var patch domain.Patch
		if err := json.Unmarshal(rawPatch, &patch); err != nil {
			if errors.Is(err, domain.ErrUnknownPatchType) {
				warnings = append(warnings, err.Error())
				continue
			}
			return nil, warnings, domain.NewNarratorError("malformed patch from narrator", true, err)
		}
		resp.Patches = append(resp.Patches, patch)
	}
	return resp, warnings, nil
}

// ParseCreationResponse decodes and validates a raw character-creation reply.
func ParseCreationResponse(raw string) (*CreationResponse, error) {
	trimmed := stripCodeFences(raw)
	if trimmed == "" {
		return nil, domain.NewNarratorError("empty response from narrator", true, nil)
	}
	var resp CreationResponse
	if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
		return nil, domain.NewNarratorError("malformed JSON from narrator", true, err)
	}
	if strings.TrimSpace(resp.MessageMarkdown) == "" {
		return nil, domain.NewNarratorError("markdown message was missing", true, nil)
	}
	return &resp, nil
}

// IsRetryable reports whether err is a narrator contract violation worth one
// retry.
func IsRetryable(err error) bool {
	var nerr *domain.NarratorError
	return errors.As(err, &nerr) && nerr.Retryable
}

// stripCodeFences removes a surrounding markdown code fence some models emit
// despite instructions.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
