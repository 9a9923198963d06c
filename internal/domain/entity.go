package domain

import (
	"fmt"
	"time"

	"soloplay-server/internal/utils"
)

// NamedEntity is the shared shape of recurring world entities (actors and
// locations). The ID is derived from the game id and the slugified name at
// creation time and never changes afterwards, even if the display name does.
type NamedEntity struct {
	ID             string   `json:"id" db:"id"`
	GameID         string   `json:"gameId" db:"game_id"`
	Name           string   `json:"name" db:"name"`
	NormalizedName string   `json:"-" db:"normalized_name"`
	Summary        string   `json:"summary,omitempty" db:"summary"`
	Description    string   `json:"description,omitempty" db:"description"`
	Tags           []string `json:"tags,omitempty" db:"tags"`
	Aliases        []string `json:"aliases,omitempty" db:"aliases"`
	Sources        []string `json:"sources,omitempty" db:"sources"`
	CreatedAt      int64    `json:"createdAt" db:"created_at"`
	UpdatedAt      int64    `json:"updatedAt" db:"updated_at"`
}

func newNamedEntity(gameID string, p Patch) NamedEntity {
	now := time.Now().UnixMilli()
	return NamedEntity{
		ID:             gameID + ":" + utils.Slugify(p.Name),
		GameID:         gameID,
		Name:           p.Name,
		NormalizedName: utils.Normalize(p.Name),
		Summary:        p.Summary,
		Description:    p.Description,
		Tags:           utils.NormalizeAll(p.Tags),
		Aliases:        utils.NormalizeAll(p.Aliases),
		Sources:        append([]string(nil), p.Sources...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Rename updates the display name without touching the immutable ID.
func (e *NamedEntity) Rename(name string) {
	e.Name = name
	e.NormalizedName = utils.Normalize(name)
	e.UpdatedAt = time.Now().UnixMilli()
}

// AddAlias records an alternative name (normalized, deduplicated).
func (e *NamedEntity) AddAlias(alias string) {
	n := utils.Normalize(alias)
	if n == "" || n == e.NormalizedName {
		return
	}
	for _, a := range e.Aliases {
		if a == n {
			return
		}
	}
	e.Aliases = append(e.Aliases, n)
	e.UpdatedAt = time.Now().UnixMilli()
}

// MatchesNameOrAlias reports whether the given name refers to this entity,
// case-insensitively, by canonical name or any alias.
func (e *NamedEntity) MatchesNameOrAlias(nameOrAlias string) bool {
	n := utils.Normalize(nameOrAlias)
	if n == "" {
		return false
	}
	if n == e.NormalizedName {
		return true
	}
	for _, a := range e.Aliases {
		if a == n {
			return true
		}
	}
	return false
}

// Merge applies a patch to an existing entity. Scalar fields are overwritten
// only when the patch supplies a non-blank value. Tag and alias sets are
// replaced wholesale, but only when the patch carries a non-empty list; an
// omitted list never wipes existing values. A patch naming the entity by a
// different name records that name as an alias. Merge is idempotent.
func (e *NamedEntity) Merge(p Patch) {
	if p.Name != "" && utils.Normalize(p.Name) != e.NormalizedName {
		e.AddAlias(p.Name)
	}
	if p.Summary != "" {
		e.Summary = p.Summary
	}
	if p.Description != "" {
		e.Description = p.Description
	}
	if len(p.Tags) > 0 {
		e.Tags = utils.NormalizeAll(p.Tags)
	}
	if len(p.Aliases) > 0 {
		e.Aliases = utils.NormalizeAll(p.Aliases)
	}
	for _, src := range p.Sources {
		e.addSource(src)
	}
	e.UpdatedAt = time.Now().UnixMilli()
}

func (e *NamedEntity) addSource(source string) {
	if source == "" {
		return
	}
	for _, s := range e.Sources {
		if s == source {
			return
		}
	}
	e.Sources = append(e.Sources, source)
}

// Actor is an NPC, creature, or player character in a game. Player characters
// carry the Player flag plus class and level.
type Actor struct {
	NamedEntity

	Player bool   `json:"player" db:"player"`
	Class  string `json:"class,omitempty" db:"class"`
	Level  int    `json:"level,omitempty" db:"level"`

	// EventIDs are the events this actor participated in, maintained via the
	// relationship table rather than an embedded object graph.
	EventIDs []string `json:"eventIds,omitempty" db:"-"`
}

// NewActor creates a non-player actor from a patch.
func NewActor(gameID string, p Patch) *Actor {
	return &Actor{NamedEntity: newNamedEntity(gameID, p)}
}

// NewPlayerActor promotes a confirmed character draft to a persistent actor.
func NewPlayerActor(gameID string, d *PlayerActorDraft) *Actor {
	a := &Actor{
		NamedEntity: newNamedEntity(gameID, Patch{
			Name:        d.Name,
			Summary:     d.Summary,
			Description: d.Description,
			Tags:        d.Tags,
			Aliases:     d.Aliases,
		}),
		Player: true,
		Class:  d.Class,
		Level:  d.Level,
	}
	return a
}

// RosterLine renders the party-roster form, e.g. "Mira (Level 3 Rogue)".
func (a *Actor) RosterLine() string {
	if a.Player {
		return fmt.Sprintf("%s (Level %d %s)", a.Name, a.Level, a.Class)
	}
	if a.Summary != "" {
		return fmt.Sprintf("%s (%s)", a.Name, a.Summary)
	}
	return a.Name
}

// Location is a recurring place in a game's world.
type Location struct {
	NamedEntity

	EventIDs []string `json:"eventIds,omitempty" db:"-"`
}

// NewLocation creates a location from a patch.
func NewLocation(gameID string, p Patch) *Location {
	return &Location{NamedEntity: newNamedEntity(gameID, p)}
}

// Event records what happened on a single turn. Events are immutable after
// creation; participants and locations are kept as id sets and persisted
// through relationship tables.
type Event struct {
	ID         string   `json:"id" db:"id"`
	GameID     string   `json:"gameId" db:"game_id"`
	Summary    string   `json:"summary" db:"summary"`
	TurnNumber int      `json:"turnNumber" db:"turn_number"`
	Tags       []string `json:"tags,omitempty" db:"tags"`
	CreatedAt  int64    `json:"createdAt" db:"created_at"`

	ParticipantIDs []string `json:"participantIds,omitempty" db:"-"`
	LocationIDs    []string `json:"locationIds,omitempty" db:"-"`
}

// NewEvent creates a turn event with a deterministic id.
func NewEvent(gameID string, turnNumber int, summary string) *Event {
	now := time.Now().UnixMilli()
	return &Event{
		ID:         fmt.Sprintf("%s:event-%d-%d", gameID, now, turnNumber),
		GameID:     gameID,
		Summary:    summary,
		TurnNumber: turnNumber,
		CreatedAt:  now,
	}
}

// AddParticipant links an actor to this event by id.
func (ev *Event) AddParticipant(actorID string) {
	for _, id := range ev.ParticipantIDs {
		if id == actorID {
			return
		}
	}
	ev.ParticipantIDs = append(ev.ParticipantIDs, actorID)
}

// AddLocation links a location to this event by id.
func (ev *Event) AddLocation(locationID string) {
	for _, id := range ev.LocationIDs {
		if id == locationID {
			return
		}
	}
	ev.LocationIDs = append(ev.LocationIDs, locationID)
}
