package domain

import (
	"encoding/json"
	"fmt"
)

// PatchType discriminates narrator-issued world-state patches. The set is
// closed: any other tag is rejected at the JSON boundary instead of being
// pattern-matched loosely downstream.
type PatchType string

const (
	PatchTypeActor    PatchType = "actor"
	PatchTypeLocation PatchType = "location"
)

// Patch is a narrator instruction to create or update a recurring entity.
// Patches are applied and discarded; they are never persisted themselves.
type Patch struct {
	Type        PatchType `json:"type"`
	Name        string    `json:"name"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Aliases     []string  `json:"aliases,omitempty"`
	Sources     []string  `json:"sources,omitempty"`
}

// patchWire tolerates the narrator nesting descriptive fields under "details".
type patchWire struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Details *struct {
		Summary     string   `json:"summary"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		Aliases     []string `json:"aliases"`
	} `json:"details"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Aliases     []string `json:"aliases"`
	Sources     []string `json:"sources"`
}

// UnmarshalJSON validates the type tag and flattens the optional details
// envelope the narrator may emit.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var w patchWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch PatchType(w.Type) {
	case PatchTypeActor, PatchTypeLocation:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPatchType, w.Type)
	}
	if w.Name == "" {
		return fmt.Errorf("patch of type %q is missing a name", w.Type)
	}
	out := Patch{
		Type:        PatchType(w.Type),
		Name:        w.Name,
		Summary:     w.Summary,
		Description: w.Description,
		Tags:        w.Tags,
		Aliases:     w.Aliases,
		Sources:     w.Sources,
	}
	if w.Details != nil {
		if out.Summary == "" {
			out.Summary = w.Details.Summary
		}
		if out.Description == "" {
			out.Description = w.Details.Description
		}
		if out.Tags == nil {
			out.Tags = w.Details.Tags
		}
		if out.Aliases == nil {
			out.Aliases = w.Details.Aliases
		}
	}
	*p = out
	return nil
}
