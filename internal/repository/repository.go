// Package repository defines the persistence contract for game sessions and
// world entities, with PostgreSQL and in-memory implementations.
package repository

import (
	"context"

	"soloplay-server/internal/domain"
)

// Batch is the set of entities touched by one turn. SaveBatch persists all of
// it atomically: a partially-updated actor/location/event graph is never
// observable.
type Batch struct {
	Actors    []*domain.Actor
	Locations []*domain.Location
	Events    []*domain.Event
}

// Empty reports whether the batch carries nothing to save.
func (b *Batch) Empty() bool {
	return len(b.Actors) == 0 && len(b.Locations) == 0 && len(b.Events) == 0
}

// GameRepository is the entity store consumed by the engine. Lookup misses
// return domain.ErrNotFound. Name-or-alias lookups are case-insensitive.
type GameRepository interface {
	FindGameByID(ctx context.Context, gameID string) (*domain.GameState, error)
	GetOrCreateGame(ctx context.Context, gameID string) (*domain.GameState, error)
	ListGames(ctx context.Context) ([]*domain.GameState, error)
	SaveGame(ctx context.Context, game *domain.GameState) error
	// DeleteGame removes the game and cascades to every entity sharing its id.
	DeleteGame(ctx context.Context, gameID string) error

	FindActorByID(ctx context.Context, id string) (*domain.Actor, error)
	FindActorByNameOrAlias(ctx context.Context, gameID, name string) (*domain.Actor, error)
	ListActors(ctx context.Context, gameID string) ([]*domain.Actor, error)
	// ListPlayerActors returns the party, ordered by creation time.
	ListPlayerActors(ctx context.Context, gameID string) ([]*domain.Actor, error)
	HasPlayerActors(ctx context.Context, gameID string) (bool, error)
	SaveActor(ctx context.Context, actor *domain.Actor) error

	FindLocationByID(ctx context.Context, id string) (*domain.Location, error)
	FindLocationByNameOrAlias(ctx context.Context, gameID, name string) (*domain.Location, error)
	ListLocations(ctx context.Context, gameID string) ([]*domain.Location, error)

	ListEvents(ctx context.Context, gameID string) ([]*domain.Event, error)
	SaveEvent(ctx context.Context, event *domain.Event) error

	// SaveBatch persists every entity in the batch in a single transaction.
	SaveBatch(ctx context.Context, batch *Batch) error
}
