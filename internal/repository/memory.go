package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"soloplay-server/internal/domain"
)

// MemoryRepository is an in-memory GameRepository. It backs engine tests and
// lets the server run without a database for throwaway sessions.
type MemoryRepository struct {
	mu        sync.RWMutex
	games     map[string]*domain.GameState
	actors    map[string]*domain.Actor
	locations map[string]*domain.Location
	events    map[string]*domain.Event
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		games:     make(map[string]*domain.GameState),
		actors:    make(map[string]*domain.Actor),
		locations: make(map[string]*domain.Location),
		events:    make(map[string]*domain.Event),
	}
}

func (r *MemoryRepository) FindGameByID(_ context.Context, gameID string) (*domain.GameState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	game, ok := r.games[gameID]
	if !ok {
		return nil, fmt.Errorf("game %q: %w", gameID, domain.ErrNotFound)
	}
	return game, nil
}

func (r *MemoryRepository) GetOrCreateGame(_ context.Context, gameID string) (*domain.GameState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if game, ok := r.games[gameID]; ok {
		return game, nil
	}
	game := domain.NewGameState(gameID)
	r.games[gameID] = game
	return game, nil
}

func (r *MemoryRepository) ListGames(_ context.Context) ([]*domain.GameState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	games := make([]*domain.GameState, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].CreatedAt < games[j].CreatedAt })
	return games, nil
}

func (r *MemoryRepository) SaveGame(_ context.Context, game *domain.GameState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[game.GameID] = game
	return nil
}

func (r *MemoryRepository) DeleteGame(_ context.Context, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[gameID]; !ok {
		return fmt.Errorf("game %q: %w", gameID, domain.ErrNotFound)
	}
	delete(r.games, gameID)
	for id, a := range r.actors {
		if a.GameID == gameID {
			delete(r.actors, id)
		}
	}
	for id, l := range r.locations {
		if l.GameID == gameID {
			delete(r.locations, id)
		}
	}
	for id, e := range r.events {
		if e.GameID == gameID {
			delete(r.events, id)
		}
	}
	return nil
}

func (r *MemoryRepository) FindActorByID(_ context.Context, id string) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	actor, ok := r.actors[id]
	if !ok {
		return nil, fmt.Errorf("actor %q: %w", id, domain.ErrNotFound)
	}
	return actor, nil
}

func (r *MemoryRepository) FindActorByNameOrAlias(_ context.Context, gameID, name string) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, actor := range r.actors {
		if actor.GameID == gameID && actor.MatchesNameOrAlias(name) {
			return actor, nil
		}
	}
	return nil, fmt.Errorf("actor %q in game %q: %w", name, gameID, domain.ErrNotFound)
}

func (r *MemoryRepository) ListActors(_ context.Context, gameID string) ([]*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var actors []*domain.Actor
	for _, actor := range r.actors {
		if actor.GameID == gameID {
			actors = append(actors, actor)
		}
	}
	sort.Slice(actors, func(i, j int) bool { return actors[i].CreatedAt < actors[j].CreatedAt })
	return actors, nil
}

func (r *MemoryRepository) ListPlayerActors(ctx context.Context, gameID string) ([]*domain.Actor, error) {
	actors, err := r.ListActors(ctx, gameID)
	if err != nil {
		return nil, err
	}
	var players []*domain.Actor
	for _, actor := range actors {
		if actor.Player {
			players = append(players, actor)
		}
	}
	return players, nil
}

func (r *MemoryRepository) HasPlayerActors(ctx context.Context, gameID string) (bool, error) {
	players, err := r.ListPlayerActors(ctx, gameID)
	if err != nil {
		return false, err
	}
	return len(players) > 0, nil
}

func (r *MemoryRepository) SaveActor(_ context.Context, actor *domain.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[actor.ID] = actor
	return nil
}

func (r *MemoryRepository) FindLocationByID(_ context.Context, id string) (*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	location, ok := r.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %q: %w", id, domain.ErrNotFound)
	}
	return location, nil
}

func (r *MemoryRepository) FindLocationByNameOrAlias(_ context.Context, gameID, name string) (*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, location := range r.locations {
		if location.GameID == gameID && location.MatchesNameOrAlias(name) {
			return location, nil
		}
	}
	return nil, fmt.Errorf("location %q in game %q: %w", name, gameID, domain.ErrNotFound)
}

func (r *MemoryRepository) ListLocations(_ context.Context, gameID string) ([]*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var locations []*domain.Location
	for _, location := range r.locations {
		if location.GameID == gameID {
			locations = append(locations, location)
		}
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i].CreatedAt < locations[j].CreatedAt })
	return locations, nil
}

func (r *MemoryRepository) ListEvents(_ context.Context, gameID string) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var events []*domain.Event
	for _, event := range r.events {
		if event.GameID == gameID {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].TurnNumber != events[j].TurnNumber {
			return events[i].TurnNumber < events[j].TurnNumber
		}
		return events[i].CreatedAt < events[j].CreatedAt
	})
	return events, nil
}

func (r *MemoryRepository) SaveEvent(_ context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = event
	return nil
}

func (r *MemoryRepository) SaveBatch(_ context.Context, batch *Batch) error {
	if batch == nil || batch.Empty() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, actor := range batch.Actors {
		r.actors[actor.ID] = actor
	}
	for _, location := range batch.Locations {
		r.locations[location.ID] = location
	}
	for _, event := range batch.Events {
		r.events[event.ID] = event
	}
	return nil
}
