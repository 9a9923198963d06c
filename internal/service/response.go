// Package service implements the turn-processing engine: phase routing,
// character creation, gameplay, and world-state persistence.
package service

import "soloplay-server/internal/domain"

// EventEmitter receives progress notices while a turn is in flight, so the
// delivery layer can stream them to the player before the final reply lands.
type EventEmitter interface {
	Status(text string)
}

// EmitterFunc adapts a plain function to EventEmitter.
type EmitterFunc func(text string)

func (f EmitterFunc) Status(text string) { f(text) }

// NopEmitter discards progress notices.
func NopEmitter() EventEmitter { return EmitterFunc(func(string) {}) }

// EffectKind tags a side effect carried alongside a reply.
type EffectKind string

const (
	// EffectDraftUpdate signals that the character draft changed (or was
	// cleared, when Draft is nil) and clients should refresh their view of it.
	EffectDraftUpdate EffectKind = "draft_update"
)

// GameEffect is a structured side effect of a turn, delivered to clients
// separately from the markdown reply.
type GameEffect struct {
	Kind  EffectKind
	Draft *domain.PlayerActorDraft
}

// GameResponse is the outcome of one processed request: the markdown reply
// plus any structured side effects.
type GameResponse struct {
	Markdown string
	Effects  []GameEffect
}

// Reply wraps markdown in a response with no side effects.
func Reply(markdown string) *GameResponse {
	return &GameResponse{Markdown: markdown}
}

// WithDraftUpdate attaches a draft-update effect to the response.
func (r *GameResponse) WithDraftUpdate(draft *domain.PlayerActorDraft) *GameResponse {
	r.Effects = append(r.Effects, GameEffect{Kind: EffectDraftUpdate, Draft: draft})
	return r
}
