package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"soloplay-server/internal/domain"
	"soloplay-server/internal/narrator"
	"soloplay-server/internal/repository"
)

// CreationEngine drives the character-creation conversation: it keeps the
// draft in the session stash, applies narrator patches to it, and promotes it
// to a player actor on confirmation.
type CreationEngine struct {
	repo    repository.GameRepository
	creator narrator.CharacterCreator
	logger  zerolog.Logger
}

// NewCreationEngine creates the character-creation engine.
func NewCreationEngine(repo repository.GameRepository, creator narrator.CharacterCreator, logger zerolog.Logger) *CreationEngine {
	return &CreationEngine{
		repo:    repo,
		creator: creator,
		logger:  logger.With().Str("component", "CreationEngine").Logger(),
	}
}

const confirmHint = "\n\nUse `/confirm` when it looks right, `/draft` to review, or `/cancel` to start over."

// ProcessRequest handles one player message during character creation.
// Commands (/draft, /cancel, /confirm) act on the draft directly; anything
// else goes to the narrator, whose patch is folded into the draft.
func (e *CreationEngine) ProcessRequest(ctx context.Context, game *domain.GameState, playerInput string, emit EventEmitter) (*GameResponse, error) {
	if game.Phase() != domain.PhaseCharacterCreation {
		game.SetPhase(domain.PhaseCharacterCreation)
	}

	switch strings.ToLower(strings.TrimSpace(playerInput)) {
	case "/draft":
		return Reply(game.Draft().Render()), nil
	case "/reset":
		return e.reset(game)
	case "/cancel":
		return e.cancel(ctx, game)
	case "/confirm":
		return e.confirm(ctx, game)
	}
	return e.converse(ctx, game, playerInput, emit)
}

// reset discards the draft but keeps the session in character creation,
// unlike /cancel, which may return an existing party to the story.
func (e *CreationEngine) reset(game *domain.GameState) (*GameResponse, error) {
	game.ClearDraft()
	resp := Reply("Discarded the character draft. Tell me about the hero you want to play.")
	return resp.WithDraftUpdate(nil), nil
}

func (e *CreationEngine) cancel(ctx context.Context, game *domain.GameState) (*GameResponse, error) {
	game.ClearDraft()

	party, err := e.repo.ListPlayerActors(ctx, game.GameID)
	if err != nil {
		return nil, err
	}
	if len(party) == 0 {
		resp := Reply("Discarded the character draft. Tell me about the hero you want to play.")
		return resp.WithDraftUpdate(nil), nil
	}

	// A party already exists, so creation was optional; return to the story.
	game.AdvancePhase()
	var b strings.Builder
	b.WriteString("Discarded the character draft. Your party:\n\n")
	for _, member := range party {
		fmt.Fprintf(&b, "- %s\n", member.RosterLine())
	}
	b.WriteString("\nSay anything to continue the adventure.")
	return Reply(b.String()).WithDraftUpdate(nil), nil
}

func (e *CreationEngine) confirm(ctx context.Context, game *domain.GameState) (*GameResponse, error) {
	draft := game.Draft()
	if missing := draft.MissingRequired(); missing != "" {
		return nil, fmt.Errorf("cannot confirm the character yet: %s", missing)
	}
	draft.Confirmed = true

	actor := domain.NewPlayerActor(game.GameID, draft)
	if err := e.repo.SaveActor(ctx, actor); err != nil {
		return nil, fmt.Errorf("saving player actor: %w", err)
	}

	game.ClearDraft()
	game.AdvancePhase()
	e.logger.Info().Str("game_id", game.GameID).Str("actor_id", actor.ID).Msg("player character confirmed")

	markdown := fmt.Sprintf("**%s** joins the adventure (Level %d %s).\n\nSay anything to begin.",
		actor.Name, actor.Level, actor.Class)
	return Reply(markdown).WithDraftUpdate(nil), nil
}

func (e *CreationEngine) converse(ctx context.Context, game *domain.GameState, playerInput string, emit EventEmitter) (*GameResponse, error) {
	emit.Status("Thinking about your character…")

	draft := game.Draft()
	resp, err := e.invoke(ctx, game, draft, playerInput)
	if err != nil {
		return nil, err
	}

	reply := Reply(resp.MessageMarkdown)
	if resp.Patch != nil {
		if draft == nil {
			draft = &domain.PlayerActorDraft{}
		}
		draft = draft.Apply(resp.Patch)
		game.SetDraft(draft)
		reply.Markdown += "\n\n" + draft.Render() + confirmHint
		reply.WithDraftUpdate(draft)
	}
	return reply, nil
}

// invoke calls the narrator, retrying once on a contract violation. A blank
// opening message with no draft uses the Start mode; everything else refines.
func (e *CreationEngine) invoke(ctx context.Context, game *domain.GameState, draft *domain.PlayerActorDraft, playerInput string) (*narrator.CreationResponse, error) {
	call := func() (*narrator.CreationResponse, error) {
		if draft == nil && strings.TrimSpace(playerInput) == "" {
			return e.creator.Start(ctx, game.GameID, game.AdventureName)
		}
		return e.creator.Refine(ctx, game.GameID, game.AdventureName, draft, playerInput)
	}

	resp, err := call()
	if err != nil && narrator.IsRetryable(err) {
		e.logger.Warn().Err(err).Str("game_id", game.GameID).Msg("retrying character-creation invocation")
		resp, err = call()
	}
	return resp, err
}
