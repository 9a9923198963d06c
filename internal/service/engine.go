package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"soloplay-server/internal/dice"
	"soloplay-server/internal/domain"
	"soloplay-server/internal/narrator"
	"soloplay-server/internal/repository"
	"soloplay-server/internal/utils"
)

// maxRecapEvents caps how much history feeds a session recap.
const maxRecapEvents = 10

// GameEngine is the phase controller. It owns one full request cycle: load
// the session, recover an unknown phase, answer meta commands, route to the
// right sub-engine, and save the session.
type GameEngine struct {
	repo     repository.GameRepository
	play     *PlayEngine
	creation *CreationEngine
	logger   zerolog.Logger

	// live holds the session instance last seen per game. The stash (draft,
	// pending roll) exists only on that instance, so a fresh copy loaded from
	// a row-backed repository must adopt it before the request is routed.
	mu   sync.Mutex
	live map[string]*domain.GameState
}

// NewGameEngine wires the engine stack. A nil roller selects the default
// random one; tests inject a deterministic roller.
func NewGameEngine(repo repository.GameRepository, n narrator.Narrator, creator narrator.CharacterCreator, roller dice.Roller, logger zerolog.Logger) *GameEngine {
	world := NewWorldState(repo, logger)
	return &GameEngine{
		repo:     repo,
		play:     NewPlayEngine(repo, n, world, dice.NewResolver(roller), logger),
		creation: NewCreationEngine(repo, creator, logger),
		logger:   logger.With().Str("component", "GameEngine").Logger(),
		live:     make(map[string]*domain.GameState),
	}
}

// ProcessRequest runs one request through the engine. resume marks a
// session-(re)entry request (a client connecting), which triggers a scene
// start or recap instead of a normal turn. The session is loaded (or created)
// by id and saved after every successful cycle.
func (e *GameEngine) ProcessRequest(ctx context.Context, gameID, playerInput string, resume bool, emit EventEmitter) (*GameResponse, error) {
	if emit == nil {
		emit = NopEmitter()
	}
	game, err := e.repo.GetOrCreateGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("loading game %q: %w", gameID, err)
	}
	game = e.trackSession(game)

	if game.Phase() == domain.PhaseUnknown {
		if err := e.recoverPhase(ctx, game); err != nil {
			return nil, err
		}
	}

	input := strings.TrimSpace(playerInput)
	switch strings.ToLower(input) {
	case "/status":
		return e.status(ctx, game)
	case "/help", "help", "?":
		return Reply(helpText(game.Phase())), nil
	case "/newcharacter":
		game.SetPhase(domain.PhaseCharacterCreation)
		game.ClearDraft()
		input = ""
	case "/start":
		input = ""
	}

	resp, err := e.route(ctx, game, input, resume, emit)
	if err != nil {
		return nil, err
	}
	if err := e.repo.SaveGame(ctx, game); err != nil {
		return nil, fmt.Errorf("saving game %q: %w", gameID, err)
	}
	return resp, nil
}

func (e *GameEngine) route(ctx context.Context, game *domain.GameState, input string, resume bool, emit EventEmitter) (*GameResponse, error) {
	switch phase := game.Phase(); {
	case phase == domain.PhaseCharacterCreation:
		return e.creation.ProcessRequest(ctx, game, input, emit)
	case phase == domain.PhaseSceneInitialization || resume:
		return e.beginOrResume(ctx, game, emit)
	default:
		resp, err := e.play.ProcessRequest(ctx, game, input, emit)
		if err != nil {
			return nil, err
		}
		game.IncrementTurn()
		return resp, nil
	}
}

// beginOrResume opens the story: a fresh game gets its first scene, a game
// with history gets a recap. Either way the session lands in active play.
func (e *GameEngine) beginOrResume(ctx context.Context, game *domain.GameState, emit EventEmitter) (*GameResponse, error) {
	events, err := e.repo.ListEvents(ctx, game.GameID)
	if err != nil {
		return nil, err
	}

	var resp *GameResponse
	if len(events) == 0 {
		resp, err = e.play.SceneStart(ctx, game, emit)
		if err != nil {
			return nil, err
		}
		game.IncrementTurn()
	} else {
		resp, err = e.play.Recap(ctx, game, renderRecentEvents(events), emit)
		if err != nil {
			return nil, err
		}
	}

	if game.Phase() != domain.PhaseActivePlay {
		game.SetPhase(domain.PhaseActivePlay)
	}
	return resp, nil
}

// recoverPhase repairs an UNKNOWN phase from durable evidence: a game with
// player characters resumes active play, anything else restarts creation.
// The recovered phase is saved immediately so meta commands that skip the
// normal save path still persist it.
func (e *GameEngine) recoverPhase(ctx context.Context, game *domain.GameState) error {
	hasPlayers, err := e.repo.HasPlayerActors(ctx, game.GameID)
	if err != nil {
		return fmt.Errorf("recovering phase for game %q: %w", game.GameID, err)
	}
	if hasPlayers {
		game.SetPhase(domain.PhaseActivePlay)
	} else {
		game.SetPhase(domain.PhaseCharacterCreation)
	}
	if err := e.repo.SaveGame(ctx, game); err != nil {
		return fmt.Errorf("saving recovered phase for game %q: %w", game.GameID, err)
	}
	e.logger.Info().Str("game_id", game.GameID).Str("phase", string(game.Phase())).
		Msg("recovered unknown game phase")
	return nil
}

// trackSession keeps the engine working on a single live instance per game.
// A copy freshly loaded from storage carries no stash, so it takes over the
// previous instance's before replacing it.
func (e *GameEngine) trackSession(game *domain.GameState) *domain.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.live[game.GameID]; ok && prev != game {
		game.AdoptStash(prev)
	}
	e.live[game.GameID] = game
	return game
}

// ReleaseSession drops the live session instance for a game, discarding any
// unconfirmed draft or unanswered roll. Called when the last client leaves.
func (e *GameEngine) ReleaseSession(gameID string) {
	e.mu.Lock()
	delete(e.live, gameID)
	e.mu.Unlock()
}

// SessionInfo reports the greeting fields for a client connecting to a game,
// creating the session record on first contact.
func (e *GameEngine) SessionInfo(ctx context.Context, gameID string) (adventureName, phase string, err error) {
	game, err := e.repo.GetOrCreateGame(ctx, gameID)
	if err != nil {
		return "", "", fmt.Errorf("loading game %q: %w", gameID, err)
	}
	return game.AdventureName, string(game.Phase()), nil
}

func (e *GameEngine) status(ctx context.Context, game *domain.GameState) (*GameResponse, error) {
	party, err := partyLines(ctx, e.repo, game.GameID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("## Session status\n\n")
	fmt.Fprintf(&b, "- **Game**: %s\n", game.GameID)
	fmt.Fprintf(&b, "- **Adventure**: %s\n", utils.ValueOrPlaceholder(game.AdventureName))
	fmt.Fprintf(&b, "- **Phase**: %s\n", game.Phase())
	fmt.Fprintf(&b, "- **Turn**: %d\n", game.TurnNumber)
	fmt.Fprintf(&b, "- **Location**: %s\n", utils.ValueOrPlaceholder(game.CurrentLocation))
	fmt.Fprintf(&b, "- **Last played**: %s\n", utils.FormatEpochMillis(game.LastPlayedAt))
	if len(party) == 0 {
		b.WriteString("- **Party**: no characters yet\n")
	} else {
		b.WriteString("- **Party**:\n")
		for _, member := range party {
			fmt.Fprintf(&b, "  - %s\n", member)
		}
	}
	if pending := game.PendingRoll(); pending != nil {
		b.WriteString("\n" + pending.Render())
	}
	return Reply(b.String()), nil
}

// ArchiveHistory records evicted conversation history as a durable memory
// event, so context dropped from the live transcript is not lost to the world
// record.
func (e *GameEngine) ArchiveHistory(ctx context.Context, gameID string, dropped int) error {
	game, err := e.repo.FindGameByID(ctx, gameID)
	if err != nil {
		return err
	}
	event := domain.NewEvent(gameID, game.TurnNumber,
		fmt.Sprintf("Archived %d earlier messages from the session transcript.", dropped))
	event.Tags = []string{"memory", "summary"}
	return e.repo.SaveEvent(ctx, event)
}

// renderRecentEvents formats the tail of the event log for the recap prompt.
func renderRecentEvents(events []*domain.Event) string {
	if len(events) == 0 {
		return "No previous events.\n"
	}
	if len(events) > maxRecapEvents {
		events = events[len(events)-maxRecapEvents:]
	}
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "- Turn %d: %s\n", ev.TurnNumber, ev.Summary)
	}
	return b.String()
}

func helpText(phase domain.GamePhase) string {
	var b strings.Builder
	b.WriteString("## Commands\n\n")
	b.WriteString("- `/status` — show the session status\n")
	b.WriteString("- `/help` — this message\n")
	if phase == domain.PhaseCharacterCreation {
		b.WriteString("- `/draft` — show the current character draft\n")
		b.WriteString("- `/confirm` — lock in the draft and start playing\n")
		b.WriteString("- `/reset` — discard the draft and start over\n")
		b.WriteString("- `/cancel` — discard the draft and return to the story\n")
		b.WriteString("\nAnything else is a message to the character builder.\n")
	} else {
		b.WriteString("- `/start` — restart or recap the current scene\n")
		b.WriteString("- `/newcharacter` — create another character\n")
		b.WriteString("- `/roll <dice>` — answer a pending roll (e.g. `/roll 1d20+3`), or enter a plain total\n")
		b.WriteString("\nAnything else is what your character says or does.\n")
	}
	return b.String()
}
