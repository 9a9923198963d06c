package domain

import (
	"time"

	"soloplay-server/internal/utils"
)

// GamePhase is the progression state machine for a game session.
type GamePhase string

const (
	PhaseCharacterCreation   GamePhase = "CHARACTER_CREATION"
	PhaseSceneInitialization GamePhase = "SCENE_INITIALIZATION"
	PhaseActivePlay          GamePhase = "ACTIVE_PLAY"
	PhaseUnknown             GamePhase = "UNKNOWN"
)

// Next advances the phase. ACTIVE_PLAY is terminal; anything off the rails
// resolves to UNKNOWN and is recovered by the game engine.
func (p GamePhase) Next() GamePhase {
	switch p {
	case PhaseCharacterCreation:
		return PhaseSceneInitialization
	case PhaseSceneInitialization:
		return PhaseActivePlay
	default:
		return PhaseUnknown
	}
}

// Valid reports whether p is one of the known phase values.
func (p GamePhase) Valid() bool {
	switch p {
	case PhaseCharacterCreation, PhaseSceneInitialization, PhaseActivePlay, PhaseUnknown:
		return true
	}
	return false
}

// Stash keys for the transient per-session store.
const (
	StashKeyDraft       = "actor_creation"
	StashKeyPendingRoll = "pending_roll"
)

// GameState is the durable session record plus a transient stash.
// The stash never reaches the repository; it holds at most one character
// draft and at most one pending roll.
type GameState struct {
	GameID          string    `json:"gameId" db:"game_id"`
	AdventureName   string    `json:"adventureName,omitempty" db:"adventure_name"`
	GamePhase       GamePhase `json:"gamePhase" db:"game_phase"`
	TurnNumber      int       `json:"turnNumber" db:"turn_number"`
	CurrentLocation string    `json:"currentLocation,omitempty" db:"current_location"`
	PlotFlags       []string  `json:"plotFlags,omitempty" db:"plot_flags"`
	LastPlayedAt    int64     `json:"lastPlayedAt,omitempty" db:"last_played_at"`
	CreatedAt       int64     `json:"createdAt" db:"created_at"`
	UpdatedAt       int64     `json:"updatedAt" db:"updated_at"`

	stash map[string]any
}

// NewGameState creates a fresh session in the character-creation phase.
func NewGameState(gameID string) *GameState {
	now := time.Now().UnixMilli()
	return &GameState{
		GameID:    gameID,
		GamePhase: PhaseCharacterCreation,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Phase returns the current phase, mapping unset values to UNKNOWN.
func (g *GameState) Phase() GamePhase {
	if !g.GamePhase.Valid() || g.GamePhase == "" {
		return PhaseUnknown
	}
	return g.GamePhase
}

// SetPhase records a phase transition.
func (g *GameState) SetPhase(p GamePhase) {
	g.GamePhase = p
	g.UpdatedAt = time.Now().UnixMilli()
}

// AdvancePhase moves the session to the next phase in the state machine.
func (g *GameState) AdvancePhase() {
	g.SetPhase(g.Phase().Next())
}

// IncrementTurn bumps the turn counter and stamps last-played time.
func (g *GameState) IncrementTurn() {
	g.TurnNumber++
	g.LastPlayedAt = time.Now().UnixMilli()
	g.UpdatedAt = g.LastPlayedAt
}

// AddPlotFlag records a normalized plot flag once.
func (g *GameState) AddPlotFlag(flag string) {
	n := utils.Normalize(flag)
	if n == "" {
		return
	}
	for _, f := range g.PlotFlags {
		if f == n {
			return
		}
	}
	g.PlotFlags = append(g.PlotFlags, n)
	g.UpdatedAt = time.Now().UnixMilli()
}

// AdoptStash takes over another instance's transient stash. Used when a fresh
// copy of the same session is loaded from storage.
func (g *GameState) AdoptStash(from *GameState) {
	if from != nil {
		g.stash = from.stash
	}
}

func (g *GameState) ensureStash() {
	if g.stash == nil {
		g.stash = make(map[string]any)
	}
}

// PutStash stores a transient value under key.
func (g *GameState) PutStash(key string, value any) {
	g.ensureStash()
	g.stash[key] = value
}

// GetStash retrieves a transient value, or nil when absent.
func (g *GameState) GetStash(key string) any {
	return g.stash[key]
}

// RemoveStash discards a transient value.
func (g *GameState) RemoveStash(key string) {
	delete(g.stash, key)
}

// Draft returns the in-progress character draft, or nil.
func (g *GameState) Draft() *PlayerActorDraft {
	d, _ := g.stash[StashKeyDraft].(*PlayerActorDraft)
	return d
}

// SetDraft stores the in-progress character draft.
func (g *GameState) SetDraft(d *PlayerActorDraft) {
	g.PutStash(StashKeyDraft, d)
}

// ClearDraft discards the in-progress character draft.
func (g *GameState) ClearDraft() {
	g.RemoveStash(StashKeyDraft)
}

// PendingRoll returns the outstanding roll requirement, or nil.
func (g *GameState) PendingRoll() *PendingRoll {
	r, _ := g.stash[StashKeyPendingRoll].(*PendingRoll)
	return r
}

// SetPendingRoll stores a roll requirement, replacing any prior one.
func (g *GameState) SetPendingRoll(r *PendingRoll) {
	g.PutStash(StashKeyPendingRoll, r)
}

// ClearPendingRoll discards the outstanding roll requirement.
func (g *GameState) ClearPendingRoll() {
	g.RemoveStash(StashKeyPendingRoll)
}
