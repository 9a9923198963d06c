package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"soloplay-server/internal/domain"
	"soloplay-server/internal/utils"
)

const gameColumns = `game_id, adventure_name, game_phase, turn_number, current_location, plot_flags, last_played_at, created_at, updated_at`

const actorColumns = `id, game_id, name, normalized_name, summary, description, tags, aliases, sources, created_at, updated_at, player, class, level`

const locationColumns = `id, game_id, name, normalized_name, summary, description, tags, aliases, sources, created_at, updated_at`

const eventColumns = `id, game_id, summary, turn_number, tags, created_at`

// PostgresRepository implements GameRepository over a pgx connection pool.
type PostgresRepository struct {
	db     *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresRepository creates the repository.
func NewPostgresRepository(db *pgxpool.Pool, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: logger.With().Str("component", "PostgresRepository").Logger(),
	}
}

func (r *PostgresRepository) FindGameByID(ctx context.Context, gameID string) (*domain.GameState, error) {
	var game domain.GameState
	query := `SELECT ` + gameColumns + ` FROM games WHERE game_id = $1`
	if err := pgxscan.Get(ctx, r.db, &game, query, gameID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("game %q: %w", gameID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load game %q: %w", gameID, err)
	}
	return &game, nil
}

func (r *PostgresRepository) GetOrCreateGame(ctx context.Context, gameID string) (*domain.GameState, error) {
	game, err := r.FindGameByID(ctx, gameID)
	if err == nil {
		return game, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	game = domain.NewGameState(gameID)
	query := `
		INSERT INTO games (game_id, game_phase, turn_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_id) DO NOTHING`
	if _, err := r.db.Exec(ctx, query, game.GameID, game.GamePhase, game.TurnNumber, game.CreatedAt, game.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create game %q: %w", gameID, err)
	}
	r.logger.Info().Str("gameId", gameID).Msg("created new game")
	// Re-read to cover a concurrent insert racing the same id.
	return r.FindGameByID(ctx, gameID)
}

func (r *PostgresRepository) ListGames(ctx context.Context) ([]*domain.GameState, error) {
	var games []*domain.GameState
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY created_at`
	if err := pgxscan.Select(ctx, r.db, &games, query); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (r *PostgresRepository) SaveGame(ctx context.Context, game *domain.GameState) error {
	game.UpdatedAt = time.Now().UnixMilli()
	query := `
		INSERT INTO games (` + gameColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (game_id) DO UPDATE SET
			adventure_name = EXCLUDED.adventure_name,
			game_phase = EXCLUDED.game_phase,
			turn_number = EXCLUDED.turn_number,
			current_location = EXCLUDED.current_location,
			plot_flags = EXCLUDED.plot_flags,
			last_played_at = EXCLUDED.last_played_at,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.Exec(ctx, query,
		game.GameID, game.AdventureName, game.GamePhase, game.TurnNumber,
		game.CurrentLocation, game.PlotFlags, game.LastPlayedAt, game.CreatedAt, game.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save game %q: %w", game.GameID, err)
	}
	return nil
}

func (r *PostgresRepository) DeleteGame(ctx context.Context, gameID string) error {
	// FK constraints cascade from games to actors, locations, events and the
	// relationship tables.
	tag, err := r.db.Exec(ctx, `DELETE FROM games WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("failed to delete game %q: %w", gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("game %q: %w", gameID, domain.ErrNotFound)
	}
	r.logger.Info().Str("gameId", gameID).Msg("deleted game and related entities")
	return nil
}

func (r *PostgresRepository) FindActorByID(ctx context.Context, id string) (*domain.Actor, error) {
	var actor domain.Actor
	query := `SELECT ` + actorColumns + ` FROM actors WHERE id = $1`
	if err := pgxscan.Get(ctx, r.db, &actor, query, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("actor %q: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load actor %q: %w", id, err)
	}
	if err := r.loadActorEvents(ctx, &actor); err != nil {
		return nil, err
	}
	return &actor, nil
}

func (r *PostgresRepository) FindActorByNameOrAlias(ctx context.Context, gameID, name string) (*domain.Actor, error) {
	var actor domain.Actor
	normalized := utils.Normalize(name)
	query := `
		SELECT ` + actorColumns + ` FROM actors
		WHERE game_id = $1 AND (normalized_name = $2 OR $2 = ANY(aliases))
		LIMIT 1`
	if err := pgxscan.Get(ctx, r.db, &actor, query, gameID, normalized); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("actor %q in game %q: %w", name, gameID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up actor %q: %w", name, err)
	}
	return &actor, nil
}

func (r *PostgresRepository) ListActors(ctx context.Context, gameID string) ([]*domain.Actor, error) {
	var actors []*domain.Actor
	query := `SELECT ` + actorColumns + ` FROM actors WHERE game_id = $1 ORDER BY created_at`
	if err := pgxscan.Select(ctx, r.db, &actors, query, gameID); err != nil {
		return nil, fmt.Errorf("failed to list actors for game %q: %w", gameID, err)
	}
	return actors, nil
}

func (r *PostgresRepository) ListPlayerActors(ctx context.Context, gameID string) ([]*domain.Actor, error) {
	var actors []*domain.Actor
	query := `SELECT ` + actorColumns + ` FROM actors WHERE game_id = $1 AND player ORDER BY created_at`
	if err := pgxscan.Select(ctx, r.db, &actors, query, gameID); err != nil {
		return nil, fmt.Errorf("failed to list player actors for game %q: %w", gameID, err)
	}
	return actors, nil
}

func (r *PostgresRepository) HasPlayerActors(ctx context.Context, gameID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM actors WHERE game_id = $1 AND player)`
	if err := r.db.QueryRow(ctx, query, gameID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check player actors for game %q: %w", gameID, err)
	}
	return exists, nil
}

func (r *PostgresRepository) SaveActor(ctx context.Context, actor *domain.Actor) error {
	return r.execSaveActor(ctx, r.db, actor)
}

func (r *PostgresRepository) FindLocationByID(ctx context.Context, id string) (*domain.Location, error) {
	var location domain.Location
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	if err := pgxscan.Get(ctx, r.db, &location, query, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("location %q: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load location %q: %w", id, err)
	}
	return &location, nil
}

func (r *PostgresRepository) FindLocationByNameOrAlias(ctx context.Context, gameID, name string) (*domain.Location, error) {
	var location domain.Location
	normalized := utils.Normalize(name)
	query := `
		SELECT ` + locationColumns + ` FROM locations
		WHERE game_id = $1 AND (normalized_name = $2 OR $2 = ANY(aliases))
		LIMIT 1`
	if err := pgxscan.Get(ctx, r.db, &location, query, gameID, normalized); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("location %q in game %q: %w", name, gameID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up location %q: %w", name, err)
	}
	return &location, nil
}

func (r *PostgresRepository) ListLocations(ctx context.Context, gameID string) ([]*domain.Location, error) {
	var locations []*domain.Location
	query := `SELECT ` + locationColumns + ` FROM locations WHERE game_id = $1 ORDER BY created_at`
	if err := pgxscan.Select(ctx, r.db, &locations, query, gameID); err != nil {
		return nil, fmt.Errorf("failed to list locations for game %q: %w", gameID, err)
	}
	return locations, nil
}

func (r *PostgresRepository) ListEvents(ctx context.Context, gameID string) ([]*domain.Event, error) {
	var events []*domain.Event
	query := `SELECT ` + eventColumns + ` FROM events WHERE game_id = $1 ORDER BY created_at`
	if err := pgxscan.Select(ctx, r.db, &events, query, gameID); err != nil {
		return nil, fmt.Errorf("failed to list events for game %q: %w", gameID, err)
	}
	return events, nil
}

func (r *PostgresRepository) SaveEvent(ctx context.Context, event *domain.Event) error {
	return r.execSaveEvent(ctx, r.db, event)
}

// SaveBatch writes all entities from one turn in a single transaction.
func (r *PostgresRepository) SaveBatch(ctx context.Context, batch *Batch) error {
	if batch == nil || batch.Empty() {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch save: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, actor := range batch.Actors {
		if err := r.execSaveActor(ctx, tx, actor); err != nil {
			return err
		}
	}
	for _, location := range batch.Locations {
		if err := r.execSaveLocation(ctx, tx, location); err != nil {
			return err
		}
	}
	for _, event := range batch.Events {
		if err := r.execSaveEvent(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch save: %w", err)
	}
	r.logger.Debug().
		Int("actors", len(batch.Actors)).
		Int("locations", len(batch.Locations)).
		Int("events", len(batch.Events)).
		Msg("batch saved")
	return nil
}

// pgxExec is satisfied by both *pgxpool.Pool and pgx.Tx, so the save helpers
// can run standalone or inside the batch transaction.
type pgxExec interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *PostgresRepository) execSaveActor(ctx context.Context, db pgxExec, actor *domain.Actor) error {
	query := `
		INSERT INTO actors (` + actorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			normalized_name = EXCLUDED.normalized_name,
			summary = EXCLUDED.summary,
			description = EXCLUDED.description,
			tags = EXCLUDED.tags,
			aliases = EXCLUDED.aliases,
			sources = EXCLUDED.sources,
			updated_at = EXCLUDED.updated_at,
			player = EXCLUDED.player,
			class = EXCLUDED.class,
			level = EXCLUDED.level`
	_, err := db.Exec(ctx, query,
		actor.ID, actor.GameID, actor.Name, actor.NormalizedName, actor.Summary,
		actor.Description, actor.Tags, actor.Aliases, actor.Sources,
		actor.CreatedAt, actor.UpdatedAt, actor.Player, actor.Class, actor.Level)
	if err != nil {
		return fmt.Errorf("failed to save actor %q: %w", actor.ID, err)
	}
	return nil
}

func (r *PostgresRepository) execSaveLocation(ctx context.Context, db pgxExec, location *domain.Location) error {
	query := `
		INSERT INTO locations (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			normalized_name = EXCLUDED.normalized_name,
			summary = EXCLUDED.summary,
			description = EXCLUDED.description,
			tags = EXCLUDED.tags,
			aliases = EXCLUDED.aliases,
			sources = EXCLUDED.sources,
			updated_at = EXCLUDED.updated_at`
	_, err := db.Exec(ctx, query,
		location.ID, location.GameID, location.Name, location.NormalizedName,
		location.Summary, location.Description, location.Tags, location.Aliases,
		location.Sources, location.CreatedAt, location.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save location %q: %w", location.ID, err)
	}
	return nil
}

func (r *PostgresRepository) execSaveEvent(ctx context.Context, db pgxExec, event *domain.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	_, err := db.Exec(ctx, query,
		event.ID, event.GameID, event.Summary, event.TurnNumber, event.Tags, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save event %q: %w", event.ID, err)
	}
	for _, actorID := range event.ParticipantIDs {
		if _, err := db.Exec(ctx,
			`INSERT INTO event_participants (event_id, actor_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			event.ID, actorID); err != nil {
			return fmt.Errorf("failed to link participant %q to event %q: %w", actorID, event.ID, err)
		}
	}
	for _, locationID := range event.LocationIDs {
		if _, err := db.Exec(ctx,
			`INSERT INTO event_locations (event_id, location_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			event.ID, locationID); err != nil {
			return fmt.Errorf("failed to link location %q to event %q: %w", locationID, event.ID, err)
		}
	}
	return nil
}

func (r *PostgresRepository) loadActorEvents(ctx context.Context, actor *domain.Actor) error {
	rows, err := r.db.Query(ctx,
		`SELECT event_id FROM event_participants WHERE actor_id = $1`, actor.ID)
	if err != nil {
		return fmt.Errorf("failed to load events for actor %q: %w", actor.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		actor.EventIDs = append(actor.EventIDs, id)
	}
	return rows.Err()
}
