package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActorDerivesImmutableID(t *testing.T) {
	actor := NewActor("g1", Patch{Name: "Dolgrim Ironhand"})
	assert.Equal(t, "g1:dolgrim-ironhand", actor.ID)
	assert.Equal(t, "dolgrim ironhand", actor.NormalizedName)

	// Renaming changes the display name only.
	actor.Rename("Dolgrim the Smith")
	assert.Equal(t, "g1:dolgrim-ironhand", actor.ID)
	assert.Equal(t, "Dolgrim the Smith", actor.Name)
}

func TestMatchesNameOrAlias(t *testing.T) {
	actor := NewActor("g1", Patch{Name: "Dolgrim", Aliases: []string{"The Smith"}})

	assert.True(t, actor.MatchesNameOrAlias("dolgrim"))
	assert.True(t, actor.MatchesNameOrAlias("  DOLGRIM  "))
	assert.True(t, actor.MatchesNameOrAlias("the smith"))
	assert.False(t, actor.MatchesNameOrAlias("someone else"))
	assert.False(t, actor.MatchesNameOrAlias(""))
}

func TestMergeScalarAndListSemantics(t *testing.T) {
	actor := NewActor("g1", Patch{Name: "Dolgrim", Summary: "A dwarf smith", Tags: []string{"smith"}})

	// Blank scalars and omitted lists never erase existing values.
	actor.Merge(Patch{Name: "Dolgrim"})
	assert.Equal(t, "A dwarf smith", actor.Summary)
	assert.Equal(t, []string{"smith"}, actor.Tags)

	// Non-blank scalars overwrite; non-empty lists replace wholesale.
	actor.Merge(Patch{Name: "Dolgrim", Summary: "A grieving smith", Tags: []string{"Smith", "Widower"}})
	assert.Equal(t, "A grieving smith", actor.Summary)
	assert.Equal(t, []string{"smith", "widower"}, actor.Tags)
}

func TestMergeRecordsDivergentNameAsAlias(t *testing.T) {
	actor := NewActor("g1", Patch{Name: "Dolgrim"})
	actor.Merge(Patch{Name: "The Smith"})
	assert.Equal(t, "Dolgrim", actor.Name)
	assert.Contains(t, actor.Aliases, "the smith")
}

func TestMergeIsIdempotent(t *testing.T) {
	patch := Patch{Name: "The Smith", Summary: "Grim", Tags: []string{"smith"}, Sources: []string{"intro"}}
	actor := NewActor("g1", Patch{Name: "Dolgrim"})

	actor.Merge(patch)
	once := *actor
	actor.Merge(patch)

	assert.Equal(t, once.Summary, actor.Summary)
	assert.Equal(t, once.Tags, actor.Tags)
	assert.Equal(t, once.Aliases, actor.Aliases)
	assert.Equal(t, once.Sources, actor.Sources)
}

func TestRosterLine(t *testing.T) {
	pc := NewPlayerActor("g1", &PlayerActorDraft{Name: "Mira", Class: "Rogue", Level: 3})
	assert.Equal(t, "Mira (Level 3 Rogue)", pc.RosterLine())
	assert.True(t, pc.Player)

	npc := NewActor("g1", Patch{Name: "Dolgrim", Summary: "A dwarf smith"})
	assert.Equal(t, "Dolgrim (A dwarf smith)", npc.RosterLine())

	bare := NewActor("g1", Patch{Name: "Rat"})
	assert.Equal(t, "Rat", bare.RosterLine())
}

func TestNewEventIDFormat(t *testing.T) {
	ev := NewEvent("g1", 7, "The vault opened.")
	require.True(t, strings.HasPrefix(ev.ID, "g1:event-"))
	assert.True(t, strings.HasSuffix(ev.ID, "-7"))
	assert.Equal(t, 7, ev.TurnNumber)

	ev.AddParticipant("g1:mira")
	ev.AddParticipant("g1:mira")
	assert.Equal(t, []string{"g1:mira"}, ev.ParticipantIDs)
}
