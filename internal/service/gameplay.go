package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"soloplay-server/internal/dice"
	"soloplay-server/internal/domain"
	"soloplay-server/internal/narrator"
	"soloplay-server/internal/repository"
)

// PlayEngine runs story turns: it assembles narrator requests, resolves dice
// input against pending rolls, and applies the narrator's response to the
// world.
type PlayEngine struct {
	repo     repository.GameRepository
	narrator narrator.Narrator
	world    *WorldState
	dice     *dice.Resolver
	logger   zerolog.Logger
}

// NewPlayEngine creates the gameplay engine.
func NewPlayEngine(repo repository.GameRepository, n narrator.Narrator, world *WorldState, resolver *dice.Resolver, logger zerolog.Logger) *PlayEngine {
	return &PlayEngine{
		repo:     repo,
		narrator: n,
		world:    world,
		dice:     resolver,
		logger:   logger.With().Str("component", "PlayEngine").Logger(),
	}
}

// SceneStart opens the adventure with the first scene.
func (e *PlayEngine) SceneStart(ctx context.Context, game *domain.GameState, emit EventEmitter) (*GameResponse, error) {
	emit.Status("Setting the scene…")
	req, err := e.buildRequest(ctx, game)
	if err != nil {
		return nil, err
	}
	resp, err := e.invoke(ctx, game, e.narrator.SceneStart, req)
	if err != nil {
		return nil, err
	}
	return e.applyResponse(ctx, game, resp)
}

// Recap welcomes a returning player with a summary of recent events.
func (e *PlayEngine) Recap(ctx context.Context, game *domain.GameState, recentEvents string, emit EventEmitter) (*GameResponse, error) {
	emit.Status("Remembering where we left off…")
	req, err := e.buildRequest(ctx, game)
	if err != nil {
		return nil, err
	}
	req.RecentEvents = recentEvents
	resp, err := e.invoke(ctx, game, e.narrator.Recap, req)
	if err != nil {
		return nil, err
	}
	return e.applyResponse(ctx, game, resp)
}

// ProcessRequest handles one player message during active play. When a roll
// is pending and the input looks like one, it is resolved mechanically and the
// outcome is narrated; otherwise the input is a standard story turn.
func (e *PlayEngine) ProcessRequest(ctx context.Context, game *domain.GameState, playerInput string, emit EventEmitter) (*GameResponse, error) {
	if pending := game.PendingRoll(); pending != nil && dice.LooksLikeRoll(playerInput) {
		return e.resolveRoll(ctx, game, playerInput, pending, emit)
	}

	emit.Status("The GM is thinking…")
	req, err := e.buildRequest(ctx, game)
	if err != nil {
		return nil, err
	}
	req.PlayerInput = playerInput
	resp, err := e.invoke(ctx, game, e.narrator.Turn, req)
	if err != nil {
		return nil, err
	}
	return e.applyResponse(ctx, game, resp)
}

func (e *PlayEngine) resolveRoll(ctx context.Context, game *domain.GameState, playerInput string, pending *domain.PendingRoll, emit EventEmitter) (*GameResponse, error) {
	result, err := e.dice.Resolve(playerInput, pending)
	if err != nil {
		// The pending roll stays in place so the player can try again.
		return nil, fmt.Errorf("could not read that roll, try `/roll 1d20+3` or a plain total: %w", err)
	}
	game.ClearPendingRoll()
	emit.Status(fmt.Sprintf("Rolled %s…", result.Breakdown))

	req, err := e.buildRequest(ctx, game)
	if err != nil {
		return nil, err
	}
	req.RollResult = result
	resp, err := e.invoke(ctx, game, e.narrator.ResolveRoll, req)
	if err != nil {
		return nil, err
	}
	return e.applyResponse(ctx, game, resp)
}

// invoke calls one narrator mode, retrying once on a contract violation.
func (e *PlayEngine) invoke(ctx context.Context, game *domain.GameState, call func(context.Context, narrator.Request) (*narrator.Response, error), req narrator.Request) (*narrator.Response, error) {
	resp, err := call(ctx, req)
	if err != nil && narrator.IsRetryable(err) {
		e.logger.Warn().Err(err).Str("game_id", game.GameID).Msg("retrying narrator invocation")
		resp, err = call(ctx, req)
	}
	return resp, err
}

func (e *PlayEngine) buildRequest(ctx context.Context, game *domain.GameState) (narrator.Request, error) {
	party, err := partyLines(ctx, e.repo, game.GameID)
	if err != nil {
		return narrator.Request{}, err
	}
	return narrator.Request{
		GameID:          game.GameID,
		AdventureName:   game.AdventureName,
		CurrentLocation: game.CurrentLocation,
		Party:           party,
	}, nil
}

// applyResponse persists world effects, stashes any new pending roll, and
// renders the player-facing reply.
func (e *PlayEngine) applyResponse(ctx context.Context, game *domain.GameState, resp *narrator.Response) (*GameResponse, error) {
	if err := e.world.ApplyTurnEffects(ctx, game, resp); err != nil {
		return nil, err
	}

	markdown := resp.Narration
	if resp.PendingRoll != nil {
		game.SetPendingRoll(resp.PendingRoll)
		markdown += "\n\n" + resp.PendingRoll.Render()
	} else if len(resp.PlayerChoices) > 0 {
		markdown += "\n"
		for i, choice := range resp.PlayerChoices {
			markdown += fmt.Sprintf("\n%d. %s", i+1, choice)
		}
	}
	return Reply(markdown), nil
}

// partyLines renders the roster line of every player character, in creation
// order.
func partyLines(ctx context.Context, repo repository.GameRepository, gameID string) ([]string, error) {
	party, err := repo.ListPlayerActors(ctx, gameID)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(party))
	for _, member := range party {
		lines = append(lines, member.RosterLine())
	}
	return lines, nil
}
