package domain

import (
	"fmt"

	"soloplay-server/internal/utils"
)

// RollType classifies a mechanical check requested by the narrator.
type RollType string

const (
	RollSkillCheck   RollType = "skill_check"
	RollAttack       RollType = "attack"
	RollSavingThrow  RollType = "saving_throw"
	RollAbilityCheck RollType = "ability_check"
)

// PendingRoll is a roll the narrator requires before the story can advance.
// At most one exists per session, held in the stash until resolved.
type PendingRoll struct {
	Type    RollType `json:"type"`
	Skill   string   `json:"skill,omitempty"`
	Ability string   `json:"ability,omitempty"`
	DC      *int     `json:"dc,omitempty"`
	Target  string   `json:"target,omitempty"`
	Context string   `json:"context,omitempty"`
}

// Render produces the player-facing prompt for an outstanding roll.
func (r *PendingRoll) Render() string {
	kind := string(r.Type)
	if r.Skill != "" {
		kind = r.Skill + " " + kind
	} else if r.Ability != "" {
		kind = r.Ability + " " + kind
	}
	dc := "?"
	if r.DC != nil {
		dc = fmt.Sprintf("%d", *r.DC)
	}
	return fmt.Sprintf("**Roll required**: %s (DC %s) — %s\n\nUse `/roll <dice>` or enter your total.",
		kind, dc, utils.ValueOrPlaceholder(r.Context))
}

// RollResult is the resolved outcome of a pending roll. It is never
// persisted; it feeds the next narrator invocation.
type RollResult struct {
	Type      RollType `json:"type"`
	Total     int      `json:"total"`
	Breakdown string   `json:"breakdown"`
	Success   bool     `json:"success"`
	Context   string   `json:"context,omitempty"`
}
