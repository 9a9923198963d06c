package domain

import (
	"fmt"
	"strings"

	"soloplay-server/internal/utils"
)

// PlayerActorDraft is a character under construction. It lives only in the
// session stash until it is confirmed (becoming a player Actor) or discarded.
type PlayerActorDraft struct {
	Name        string   `json:"name,omitempty"`
	Class       string   `json:"class,omitempty"`
	Level       int      `json:"level,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Confirmed   bool     `json:"confirmed"`
}

// CreationPatch is the incremental character update produced by the narrator
// during character creation.
type CreationPatch struct {
	Name        string   `json:"name,omitempty"`
	Class       string   `json:"class,omitempty"`
	Level       int      `json:"level,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Rationale   string   `json:"rationale,omitempty"`
}

// Apply merges a creation patch into the draft: first non-blank wins per
// scalar field, tag and alias lists are replaced only when provided.
func (d *PlayerActorDraft) Apply(p *CreationPatch) *PlayerActorDraft {
	if p == nil {
		return d
	}
	next := *d
	next.Name = utils.FirstNonBlank(p.Name, d.Name)
	next.Class = utils.FirstNonBlank(p.Class, d.Class)
	if p.Level > 0 {
		next.Level = p.Level
	}
	next.Summary = utils.FirstNonBlank(p.Summary, d.Summary)
	next.Description = utils.FirstNonBlank(p.Description, d.Description)
	if p.Tags != nil {
		next.Tags = utils.NormalizeAll(p.Tags)
	}
	if p.Aliases != nil {
		next.Aliases = utils.NormalizeAll(p.Aliases)
	}
	return &next
}

// MissingRequired names the first required field still absent, or "" when the
// draft can be confirmed.
func (d *PlayerActorDraft) MissingRequired() string {
	if d == nil {
		return "no draft"
	}
	if strings.TrimSpace(d.Name) == "" {
		return "missing name"
	}
	if strings.TrimSpace(d.Class) == "" {
		return "missing class"
	}
	if d.Level < 1 {
		return "missing/invalid level"
	}
	return ""
}

// Render produces the markdown view of the draft shown to the player.
func (d *PlayerActorDraft) Render() string {
	if d == nil {
		return "No current draft."
	}
	var b strings.Builder
	b.WriteString("Current character draft:\n\n")
	fmt.Fprintf(&b, "- **Name**: %s\n", utils.ValueOrPlaceholder(d.Name))
	fmt.Fprintf(&b, "- **Class**: %s\n", utils.ValueOrPlaceholder(d.Class))
	if d.Level > 0 {
		fmt.Fprintf(&b, "- **Level**: %d\n", d.Level)
	} else {
		b.WriteString("- **Level**: —\n")
	}
	fmt.Fprintf(&b, "- **Summary**: %s\n", utils.ValueOrPlaceholder(d.Summary))
	if d.Description != "" {
		fmt.Fprintf(&b, "- **Description**: %s\n", d.Description)
	}
	fmt.Fprintf(&b, "- **Tags**: %s\n", utils.ListOrPlaceholder(d.Tags))
	fmt.Fprintf(&b, "- **Aliases**: %s", utils.ListOrPlaceholder(d.Aliases))
	return b.String()
}
