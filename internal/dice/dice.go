// Package dice parses free-text roll input and resolves it against a pending
// roll requirement.
package dice

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"soloplay-server/internal/domain"
)

var (
	bareInteger = regexp.MustCompile(`^\d+$`)
	diceTerm    = regexp.MustCompile(`(\d*)d(\d+)`)
	modifier    = regexp.MustCompile(`[+-]\s*\d+`)
)

// Roller produces a uniform die result in [1, sides]. Swappable for
// deterministic tests.
type Roller func(sides int) int

// DefaultRoller uses math/rand; narrative rolls do not need crypto strength.
func DefaultRoller(sides int) int {
	return rand.Intn(sides) + 1
}

// Resolver turns roll input into roll results.
type Resolver struct {
	roll Roller
}

// NewResolver creates a resolver with the given roller, defaulting to
// DefaultRoller when nil.
func NewResolver(roll Roller) *Resolver {
	if roll == nil {
		roll = DefaultRoller
	}
	return &Resolver{roll: roll}
}

// LooksLikeRoll reports whether input should be treated as a roll attempt:
// a /roll command or a bare non-negative integer (a physically rolled total).
func LooksLikeRoll(input string) bool {
	trimmed := strings.TrimSpace(input)
	return strings.HasPrefix(trimmed, "/roll") || bareInteger.MatchString(trimmed)
}

// Resolve parses roll input and scores it against the pending roll.
//
// A bare integer is accepted as a physically rolled total. Otherwise the
// input is scanned for dice terms ([count]d<size>, count defaulting to 1)
// which are rolled and summed, plus any signed integer modifiers. Input with
// no dice term fails with domain.ErrUnparseableRoll; the zero-total result is
// returned alongside the error so callers can show the breakdown.
func (r *Resolver) Resolve(input string, pending *domain.PendingRoll) (*domain.RollResult, error) {
	trimmed := strings.TrimSpace(input)
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "/roll"))

	if bareInteger.MatchString(trimmed) {
		total, err := strconv.Atoi(trimmed)
		if err != nil {
			return failed(pending), domain.ErrUnparseableRoll
		}
		return result(pending, total, strconv.Itoa(total)+" (player roll)"), nil
	}

	terms := diceTerm.FindAllStringSubmatch(trimmed, -1)
	if len(terms) == 0 {
		return failed(pending), domain.ErrUnparseableRoll
	}

	total := 0
	var parts []string
	for _, term := range terms {
		count := 1
		if term[1] != "" {
			count, _ = strconv.Atoi(term[1])
		}
		size, _ := strconv.Atoi(term[2])
		if count < 1 || size < 1 {
			return failed(pending), domain.ErrUnparseableRoll
		}
		sum := 0
		rolls := make([]string, count)
		for i := 0; i < count; i++ {
			v := r.roll(size)
			sum += v
			rolls[i] = strconv.Itoa(v)
		}
		total += sum
		parts = append(parts, term[0]+" ["+strings.Join(rolls, ", ")+"]")
	}

	// Strip dice terms, then collect signed modifiers from what remains.
	remainder := diceTerm.ReplaceAllString(trimmed, "")
	for _, m := range modifier.FindAllString(remainder, -1) {
		v, err := strconv.Atoi(strings.ReplaceAll(m, " ", ""))
		if err != nil {
			continue
		}
		total += v
		if v >= 0 {
			parts = append(parts, "+"+strconv.Itoa(v))
		} else {
			parts = append(parts, strconv.Itoa(v))
		}
	}

	breakdown := strings.Join(parts, " ") + " = " + strconv.Itoa(total)
	return result(pending, total, breakdown), nil
}

func result(pending *domain.PendingRoll, total int, breakdown string) *domain.RollResult {
	res := &domain.RollResult{
		Total:     total,
		Breakdown: breakdown,
		Success:   true,
	}
	if pending != nil {
		res.Type = pending.Type
		res.Context = pending.Context
		if pending.DC != nil {
			res.Success = total >= *pending.DC
		}
	}
	return res
}

func failed(pending *domain.PendingRoll) *domain.RollResult {
	res := &domain.RollResult{Total: 0, Breakdown: "invalid input", Success: false}
	if pending != nil {
		res.Type = pending.Type
		res.Context = pending.Context
	}
	return res
}
