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

func newCreationTest(creator *fakeCreator) (*CreationEngine, *repository.MemoryRepository) {
	repo := repository.NewMemoryRepository()
	return NewCreationEngine(repo, creator, zerolog.Nop()), repo
}

func TestCreationStartsConversationAndAppliesPatch(t *testing.T) {
	creator := &fakeCreator{responses: []*narrator.CreationResponse{{
		MessageMarkdown: "Welcome! What kind of hero calls to you?",
		Patch:           &domain.CreationPatch{Name: "Mira"},
	}}}
	engine, _ := newCreationTest(creator)
	game := domain.NewGameState("g1")

	emit := &captureEmitter{}
	resp, err := engine.ProcessRequest(context.Background(), game, "", emit)
	require.NoError(t, err)

	assert.Equal(t, []string{"start"}, creator.calls)
	assert.Contains(t, resp.Markdown, "Welcome!")
	assert.Contains(t, resp.Markdown, "Mira")
	require.NotNil(t, game.Draft())
	assert.Equal(t, "Mira", game.Draft().Name)
	require.Len(t, resp.Effects, 1)
	assert.Equal(t, EffectDraftUpdate, resp.Effects[0].Kind)
	assert.Equal(t, "Mira", resp.Effects[0].Draft.Name)
	assert.NotEmpty(t, emit.notices)
}

func TestCreationRefinesExistingDraft(t *testing.T) {
	creator := &fakeCreator{responses: []*narrator.CreationResponse{{
		MessageMarkdown: "A rogue, excellent choice.",
		Patch:           &domain.CreationPatch{Class: "Rogue", Level: 3},
	}}}
	engine, _ := newCreationTest(creator)
	game := domain.NewGameState("g1")
	game.SetDraft(&domain.PlayerActorDraft{Name: "Mira"})

	_, err := engine.ProcessRequest(context.Background(), game, "make her a rogue", NopEmitter())
	require.NoError(t, err)

	assert.Equal(t, []string{"refine"}, creator.calls)
	assert.Equal(t, []string{"make her a rogue"}, creator.inputs)
	draft := game.Draft()
	require.NotNil(t, draft)
	assert.Equal(t, "Mira", draft.Name)
	assert.Equal(t, "Rogue", draft.Class)
	assert.Equal(t, 3, draft.Level)
}

func TestCreationRetriesOnceOnContractViolation(t *testing.T) {
	creator := &fakeCreator{
		errs: []error{domain.NewNarratorError("markdown message was missing", true, nil)},
		responses: []*narrator.CreationResponse{nil, {
			MessageMarkdown: "Second time lucky.",
		}},
	}
	engine, _ := newCreationTest(creator)
	game := domain.NewGameState("g1")
	game.SetDraft(&domain.PlayerActorDraft{Name: "Mira"})

	resp, err := engine.ProcessRequest(context.Background(), game, "hello", NopEmitter())
	require.NoError(t, err)
	assert.Len(t, creator.calls, 2)
	assert.Contains(t, resp.Markdown, "Second time lucky.")
}

func TestCreationDraftCommand(t *testing.T) {
	engine, _ := newCreationTest(&fakeCreator{})
	game := domain.NewGameState("g1")

	resp, err := engine.ProcessRequest(context.Background(), game, "/draft", NopEmitter())
	require.NoError(t, err)
	assert.Equal(t, "No current draft.", resp.Markdown)

	game.SetDraft(&domain.PlayerActorDraft{Name: "Mira", Class: "Rogue", Level: 3})
	resp, err = engine.ProcessRequest(context.Background(), game, "/draft", NopEmitter())
	require.NoError(t, err)
	assert.Contains(t, resp.Markdown, "**Name**: Mira")
	assert.Contains(t, resp.Markdown, "**Class**: Rogue")
}

func TestConfirmRejectsIncompleteDraft(t *testing.T) {
	engine, repo := newCreationTest(&fakeCreator{})
	game := domain.NewGameState("g1")
	game.SetDraft(&domain.PlayerActorDraft{Name: "Mira"})

	_, err := engine.ProcessRequest(context.Background(), game, "/confirm", NopEmitter())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing class")

	// The draft and phase are untouched so the player can keep refining.
	assert.NotNil(t, game.Draft())
	assert.Equal(t, domain.PhaseCharacterCreation, game.Phase())
	actors, err := repo.ListActors(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, actors)
}

func TestConfirmPromotesDraftToPlayerActor(t *testing.T) {
	engine, repo := newCreationTest(&fakeCreator{})
	game := domain.NewGameState("g1")
	game.SetDraft(&domain.PlayerActorDraft{Name: "Mira", Class: "Rogue", Level: 3})

	resp, err := engine.ProcessRequest(context.Background(), game, "/confirm", NopEmitter())
	require.NoError(t, err)
	assert.Contains(t, resp.Markdown, "**Mira** joins the adventure")
	assert.Nil(t, game.Draft())
	assert.Equal(t, domain.PhaseSceneInitialization, game.Phase())

	party, err := repo.ListPlayerActors(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, party, 1)
	assert.True(t, party[0].Player)
	assert.Equal(t, "g1:mira", party[0].ID)
	assert.Equal(t, "Mira (Level 3 Rogue)", party[0].RosterLine())

	require.Len(t, resp.Effects, 1)
	assert.Nil(t, resp.Effects[0].Draft, "confirmation clears the client-side draft")
}

func TestCancelWithoutParty(t *testing.T) {
	engine, _ := newCreationTest(&fakeCreator{})
	game := domain.NewGameState("g1")
	game.SetDraft(&domain.PlayerActorDraft{Name: "Mira"})

	resp, err := engine.ProcessRequest(context.Background(), game, "/cancel", NopEmitter())
	require.NoError(t, err)
	assert.Nil(t, game.Draft())
	assert.Equal(t, domain.PhaseCharacterCreation, game.Phase())
	assert.Contains(t, resp.Markdown, "Discarded the character draft")
}

func TestResetStaysInCreationDespiteParty(t *testing.T) {
	engine, repo := newCreationTest(&fakeCreator{})
	game := domain.NewGameState("g1")
	game.SetDraft(&domain.PlayerActorDraft{Name: "Second"})

	existing := domain.NewPlayerActor("g1", &domain.PlayerActorDraft{Name: "Mira", Class: "Rogue", Level: 3})
	require.NoError(t, repo.SaveActor(context.Background(), existing))

	resp, err := engine.ProcessRequest(context.Background(), game, "/reset", NopEmitter())
	require.NoError(t, err)
	assert.Nil(t, game.Draft())
	assert.Equal(t, domain.PhaseCharacterCreation, game.Phase(), "/reset never leaves character creation")
	assert.Contains(t, resp.Markdown, "Discarded the character draft")

	require.Len(t, resp.Effects, 1)
	assert.Equal(t, EffectDraftUpdate, resp.Effects[0].Kind)
	assert.Nil(t, resp.Effects[0].Draft)
}

func TestCancelWithExistingPartyReturnsToStory(t *testing.T) {
	engine, repo := newCreationTest(&fakeCreator{})
	game := domain.NewGameState("g1")
	game.SetDraft(&domain.PlayerActorDraft{Name: "Second"})

	existing := domain.NewPlayerActor("g1", &domain.PlayerActorDraft{Name: "Mira", Class: "Rogue", Level: 3})
	require.NoError(t, repo.SaveActor(context.Background(), existing))

	resp, err := engine.ProcessRequest(context.Background(), game, "/cancel", NopEmitter())
	require.NoError(t, err)
	assert.Nil(t, game.Draft())
	assert.Equal(t, domain.PhaseSceneInitialization, game.Phase())
	assert.Contains(t, resp.Markdown, "Mira (Level 3 Rogue)")
}
