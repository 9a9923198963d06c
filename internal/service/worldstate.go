package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"soloplay-server/internal/domain"
	"soloplay-server/internal/narrator"
	"soloplay-server/internal/repository"
)

// WorldState folds narrator responses into durable world state: entity
// patches, presence links, and the per-turn event record.
type WorldState struct {
	repo   repository.GameRepository
	logger zerolog.Logger
}

// NewWorldState creates the world-state patcher.
func NewWorldState(repo repository.GameRepository, logger zerolog.Logger) *WorldState {
	return &WorldState{
		repo:   repo,
		logger: logger.With().Str("component", "WorldState").Logger(),
	}
}

// ApplyTurnEffects applies one narrator response to the world and persists
// every touched entity in a single batch. Patches create or merge entities;
// presence lists are exact name-or-alias lookups and never create anything.
// When the response carries a turn summary, one Event is materialized and
// linked to the actors and locations present. Entities touched twice in the
// same turn resolve to the same instance.
func (w *WorldState) ApplyTurnEffects(ctx context.Context, game *domain.GameState, resp *narrator.Response) error {
	if loc := strings.TrimSpace(resp.CurrentLocation); loc != "" {
		game.CurrentLocation = loc
	}

	actors := make(map[string]*domain.Actor)
	locations := make(map[string]*domain.Location)

	for _, patch := range resp.Patches {
		switch patch.Type {
		case domain.PatchTypeActor:
			if _, err := w.upsertActor(ctx, game.GameID, patch, actors); err != nil {
				return fmt.Errorf("applying actor patch %q: %w", patch.Name, err)
			}
		case domain.PatchTypeLocation:
			if _, err := w.upsertLocation(ctx, game.GameID, patch, locations); err != nil {
				return fmt.Errorf("applying location patch %q: %w", patch.Name, err)
			}
		}
	}

	var presentActors []*domain.Actor
	for _, name := range resp.ActorsPresent {
		actor, err := w.lookupActor(ctx, game.GameID, name, actors)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				w.logger.Warn().Str("game_id", game.GameID).Str("name", name).
					Msg("narrator referenced unknown actor, skipping")
				continue
			}
			return err
		}
		presentActors = append(presentActors, actor)
	}

	var presentLocations []*domain.Location
	for _, name := range resp.LocationsPresent {
		location, err := w.lookupLocation(ctx, game.GameID, name, locations)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				w.logger.Warn().Str("game_id", game.GameID).Str("name", name).
					Msg("narrator referenced unknown location, skipping")
				continue
			}
			return err
		}
		presentLocations = append(presentLocations, location)
	}

	batch := &repository.Batch{}
	for _, actor := range actors {
		batch.Actors = append(batch.Actors, actor)
	}
	for _, location := range locations {
		batch.Locations = append(batch.Locations, location)
	}

	if summary := strings.TrimSpace(resp.TurnSummary); summary != "" {
		event := domain.NewEvent(game.GameID, game.TurnNumber, summary)
		for _, actor := range presentActors {
			event.AddParticipant(actor.ID)
		}
		for _, location := range presentLocations {
			event.AddLocation(location.ID)
		}
		batch.Events = append(batch.Events, event)
	}

	if batch.Empty() {
		return nil
	}
	if err := w.repo.SaveBatch(ctx, batch); err != nil {
		return fmt.Errorf("saving turn batch: %w", err)
	}
	w.logger.Debug().Str("game_id", game.GameID).
		Int("actors", len(batch.Actors)).
		Int("locations", len(batch.Locations)).
		Int("events", len(batch.Events)).
		Msg("turn effects applied")
	return nil
}

// upsertActor resolves a patch to an existing actor (touched this turn or
// persisted) and merges into it, or creates a new one.
func (w *WorldState) upsertActor(ctx context.Context, gameID string, patch domain.Patch, touched map[string]*domain.Actor) (*domain.Actor, error) {
	for _, actor := range touched {
		if actor.MatchesNameOrAlias(patch.Name) {
			actor.Merge(patch)
			return actor, nil
		}
	}
	actor, err := w.repo.FindActorByNameOrAlias(ctx, gameID, patch.Name)
	switch {
	case err == nil:
		actor.Merge(patch)
	case errors.Is(err, domain.ErrNotFound):
		actor = domain.NewActor(gameID, patch)
	default:
		return nil, err
	}
	touched[actor.ID] = actor
	return actor, nil
}

func (w *WorldState) upsertLocation(ctx context.Context, gameID string, patch domain.Patch, touched map[string]*domain.Location) (*domain.Location, error) {
	for _, location := range touched {
		if location.MatchesNameOrAlias(patch.Name) {
			location.Merge(patch)
			return location, nil
		}
	}
	location, err := w.repo.FindLocationByNameOrAlias(ctx, gameID, patch.Name)
	switch {
	case err == nil:
		location.Merge(patch)
	case errors.Is(err, domain.ErrNotFound):
		location = domain.NewLocation(gameID, patch)
	default:
		return nil, err
	}
	touched[location.ID] = location
	return location, nil
}

func (w *WorldState) lookupActor(ctx context.Context, gameID, name string, touched map[string]*domain.Actor) (*domain.Actor, error) {
	for _, actor := range touched {
		if actor.MatchesNameOrAlias(name) {
			return actor, nil
		}
	}
	return w.repo.FindActorByNameOrAlias(ctx, gameID, name)
}

func (w *WorldState) lookupLocation(ctx context.Context, gameID, name string, touched map[string]*domain.Location) (*domain.Location, error) {
	for _, location := range touched {
		if location.MatchesNameOrAlias(name) {
			return location, nil
		}
	}
	return w.repo.FindLocationByNameOrAlias(ctx, gameID, name)
}
