package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soloplay-server/internal/domain"
	"soloplay-server/internal/narrator"
	"soloplay-server/internal/repository"
)

func newWorldStateTest() (*WorldState, *repository.MemoryRepository) {
	repo := repository.NewMemoryRepository()
	return NewWorldState(repo, zerolog.Nop()), repo
}

func TestApplyTurnEffectsCreatesEntities(t *testing.T) {
	world, repo := newWorldStateTest()
	game := domain.NewGameState("g1")

	err := world.ApplyTurnEffects(context.Background(), game, &narrator.Response{
		Narration:       "You meet Dolgrim.",
		CurrentLocation: "The Forge",
		Patches: []domain.Patch{
			{Type: domain.PatchTypeActor, Name: "Dolgrim", Summary: "A dwarf smith"},
			{Type: domain.PatchTypeLocation, Name: "The Forge", Summary: "Hot and loud"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "The Forge", game.CurrentLocation)

	actor, err := repo.FindActorByNameOrAlias(context.Background(), "g1", "dolgrim")
	require.NoError(t, err)
	assert.Equal(t, "g1:dolgrim", actor.ID)
	assert.Equal(t, "A dwarf smith", actor.Summary)

	location, err := repo.FindLocationByNameOrAlias(context.Background(), "g1", "the forge")
	require.NoError(t, err)
	assert.Equal(t, "g1:the-forge", location.ID)
}

func TestApplyTurnEffectsDeduplicatesWithinTurn(t *testing.T) {
	world, repo := newWorldStateTest()
	game := domain.NewGameState("g1")

	// Two patches naming the same actor with different casing must resolve to
	// one entity.
	err := world.ApplyTurnEffects(context.Background(), game, &narrator.Response{
		Narration: "ok",
		Patches: []domain.Patch{
			{Type: domain.PatchTypeActor, Name: "Dolgrim", Summary: "A dwarf smith"},
			{Type: domain.PatchTypeActor, Name: "dolgrim", Tags: []string{"Merchant"}},
		},
	})
	require.NoError(t, err)

	actors, err := repo.ListActors(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, actors, 1)
	assert.Equal(t, "A dwarf smith", actors[0].Summary)
	assert.Equal(t, []string{"merchant"}, actors[0].Tags)
}

func TestApplyTurnEffectsMergesPersistedEntity(t *testing.T) {
	world, repo := newWorldStateTest()
	game := domain.NewGameState("g1")

	existing := domain.NewActor("g1", domain.Patch{Name: "Dolgrim", Summary: "A dwarf smith"})
	require.NoError(t, repo.SaveActor(context.Background(), existing))

	err := world.ApplyTurnEffects(context.Background(), game, &narrator.Response{
		Narration: "ok",
		Patches: []domain.Patch{
			{Type: domain.PatchTypeActor, Name: "Dolgrim", Description: "Scarred hands, patient eyes."},
		},
	})
	require.NoError(t, err)

	actors, err := repo.ListActors(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, actors, 1)
	assert.Equal(t, existing.ID, actors[0].ID)
	assert.Equal(t, "A dwarf smith", actors[0].Summary)
	assert.Equal(t, "Scarred hands, patient eyes.", actors[0].Description)
}

func TestApplyTurnEffectsPresenceNeverCreates(t *testing.T) {
	world, repo := newWorldStateTest()
	game := domain.NewGameState("g1")

	err := world.ApplyTurnEffects(context.Background(), game, &narrator.Response{
		Narration:        "A stranger watches from the shadows.",
		ActorsPresent:    []string{"The Stranger"},
		LocationsPresent: []string{"Nowhere"},
	})
	require.NoError(t, err)

	actors, err := repo.ListActors(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, actors)

	locations, err := repo.ListLocations(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, locations)
}

func TestApplyTurnEffectsMaterializesEvent(t *testing.T) {
	world, repo := newWorldStateTest()
	game := domain.NewGameState("g1")
	game.TurnNumber = 3

	err := world.ApplyTurnEffects(context.Background(), game, &narrator.Response{
		Narration:   "Dolgrim hands over the key.",
		TurnSummary: "Dolgrim gave the party the vault key.",
		Patches: []domain.Patch{
			{Type: domain.PatchTypeActor, Name: "Dolgrim"},
			{Type: domain.PatchTypeLocation, Name: "The Forge"},
		},
		ActorsPresent:    []string{"Dolgrim"},
		LocationsPresent: []string{"The Forge"},
	})
	require.NoError(t, err)

	events, err := repo.ListEvents(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].TurnNumber)
	assert.Equal(t, "Dolgrim gave the party the vault key.", events[0].Summary)
	assert.Equal(t, []string{"g1:dolgrim"}, events[0].ParticipantIDs)
	assert.Equal(t, []string{"g1:the-forge"}, events[0].LocationIDs)
}

func TestApplyTurnEffectsNoEventWithoutSummary(t *testing.T) {
	world, repo := newWorldStateTest()
	game := domain.NewGameState("g1")

	err := world.ApplyTurnEffects(context.Background(), game, &narrator.Response{
		Narration:   "What would you like to do?",
		TurnSummary: "   ",
	})
	require.NoError(t, err)

	events, err := repo.ListEvents(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, events)
}
