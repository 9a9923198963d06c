package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"soloplay-server/internal/domain"
	"soloplay-server/internal/service"
)

var turnsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "soloplay_turns_total",
	Help: "Turns handled by the session gateway, by outcome.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(turnsProcessed)
}

// maxHistory bounds the live transcript per game. Older entries are evicted
// FIFO and reported to the archiver.
const maxHistory = 250

// Engine is the slice of the game engine the gateway needs: turn processing,
// the session greeting, and releasing live state when a room closes.
type Engine interface {
	ProcessRequest(ctx context.Context, gameID, playerInput string, resume bool, emit service.EventEmitter) (*service.GameResponse, error)
	SessionInfo(ctx context.Context, gameID string) (adventureName, phase string, err error)
	ReleaseSession(gameID string)
}

// Renderer converts reply markdown to HTML for clients that render neither.
// A nil renderer leaves the HTML field empty.
type Renderer func(markdown string) string

// ArchiveFunc is notified when transcript entries are evicted, so dropped
// context can be preserved durably.
type ArchiveFunc func(ctx context.Context, gameID string, dropped int) error

// Hub routes clients into per-game rooms. Each room shares one transcript and
// one in-flight turn slot; state is released when the last client leaves.
type Hub struct {
	engine  Engine
	render  Renderer
	archive ArchiveFunc
	logger  zerolog.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	clients map[*Client]struct{}
	history []HistoryEntry
	busy    atomic.Bool
}

// NewHub creates the gateway hub. render and archive may be nil.
func NewHub(engine Engine, render Renderer, archive ArchiveFunc, logger zerolog.Logger) *Hub {
	return &Hub{
		engine:  engine,
		render:  render,
		archive: archive,
		logger:  logger.With().Str("component", "Hub").Logger(),
		rooms:   make(map[string]*room),
	}
}

// Join registers a client with its game room, creating the room on first
// connect, and greets it with the session header and current transcript.
func (h *Hub) Join(gameID string, client *Client) {
	h.mu.Lock()
	r, ok := h.rooms[gameID]
	if !ok {
		r = &room{clients: make(map[*Client]struct{})}
		h.rooms[gameID] = r
	}
	r.clients[client] = struct{}{}
	history := append([]HistoryEntry(nil), r.history...)
	clients := len(r.clients)
	h.mu.Unlock()

	greeting := ServerMessage{Type: TypeSession, GameID: gameID,
		Text: "Connected. Send a message to play, or `/help` for commands."}
	if adventure, phase, err := h.engine.SessionInfo(context.Background(), gameID); err != nil {
		h.logger.Warn().Err(err).Str("game_id", gameID).Msg("failed to load session info for greeting")
	} else {
		greeting.AdventureName = adventure
		greeting.Phase = phase
	}
	client.enqueue(greeting)
	client.enqueue(ServerMessage{Type: TypeHistory, GameID: gameID, History: history})
	h.logger.Info().Str("game_id", gameID).Int("clients", clients).Msg("client joined")
}

// Leave removes a client. When the last one disconnects the room is dropped,
// releasing the transcript and the turn slot.
func (h *Hub) Leave(gameID string, client *Client) {
	h.mu.Lock()
	r, ok := h.rooms[gameID]
	released := false
	if ok {
		delete(r.clients, client)
		if len(r.clients) == 0 {
			delete(h.rooms, gameID)
			released = true
		}
	}
	h.mu.Unlock()
	client.closeSend()
	if released {
		h.engine.ReleaseSession(gameID)
	}
	if ok {
		h.logger.Info().Str("game_id", gameID).Msg("client left")
	}
}

// SendHistory replays the transcript to one client.
func (h *Hub) SendHistory(gameID string, client *Client) {
	h.mu.Lock()
	var history []HistoryEntry
	if r, ok := h.rooms[gameID]; ok {
		history = append(history, r.history...)
	}
	h.mu.Unlock()
	client.enqueue(ServerMessage{Type: TypeHistory, GameID: gameID, History: history})
}

// HandleUserMessage runs one turn for a room. Only one turn may be in flight
// per game; concurrent attempts are rejected at the caller, not queued.
func (h *Hub) HandleUserMessage(ctx context.Context, gameID string, client *Client, content string) {
	h.mu.Lock()
	r := h.rooms[gameID]
	h.mu.Unlock()
	if r == nil {
		return
	}
	if !r.busy.CompareAndSwap(false, true) {
		turnsProcessed.WithLabelValues("rejected").Inc()
		client.enqueue(ServerMessage{Type: TypeError, GameID: gameID,
			Error: domain.ErrGenerationInProgress.Error()})
		return
	}
	defer r.busy.Store(false)

	input := strings.TrimSpace(content)
	if input != "" {
		h.appendHistory(gameID, r, HistoryEntry{Role: "user", Markdown: input, At: time.Now().UnixMilli()})
		h.broadcast(gameID, ServerMessage{Type: TypeUserEcho, GameID: gameID, Markdown: input})
	}

	// One id per generation, threaded through start, deltas, done or error.
	genID := uuid.NewString()
	h.broadcast(gameID, ServerMessage{Type: TypeAssistantStart, ID: genID, GameID: gameID})
	emit := service.EmitterFunc(func(text string) {
		h.broadcast(gameID, ServerMessage{Type: TypeAssistantDelta, ID: genID, GameID: gameID, Text: text})
	})

	resume := input == "" || strings.EqualFold(input, "/start")
	resp, err := h.engine.ProcessRequest(ctx, gameID, input, resume, emit)
	if err != nil {
		turnsProcessed.WithLabelValues("error").Inc()
		h.logger.Error().Err(err).Str("game_id", gameID).Msg("turn failed")
		h.broadcast(gameID, ServerMessage{Type: TypeError, ID: genID, GameID: gameID, Error: err.Error()})
		return
	}
	turnsProcessed.WithLabelValues("ok").Inc()

	entry := HistoryEntry{Role: "assistant", Markdown: resp.Markdown, At: time.Now().UnixMilli()}
	if h.render != nil {
		entry.HTML = h.render(resp.Markdown)
	}
	h.appendHistory(gameID, r, entry)
	h.broadcast(gameID, ServerMessage{Type: TypeAssistantDone, ID: genID, GameID: gameID,
		Markdown: entry.Markdown, HTML: entry.HTML})

	for _, effect := range resp.Effects {
		if effect.Kind == service.EffectDraftUpdate {
			h.broadcast(gameID, ServerMessage{Type: TypeDraftUpdate, GameID: gameID, Draft: effect.Draft})
		}
	}
}

func (h *Hub) appendHistory(gameID string, r *room, entry HistoryEntry) {
	h.mu.Lock()
	r.history = append(r.history, entry)
	dropped := len(r.history) - maxHistory
	if dropped > 0 {
		r.history = append([]HistoryEntry(nil), r.history[dropped:]...)
	}
	h.mu.Unlock()

	if dropped > 0 && h.archive != nil {
		if err := h.archive(context.Background(), gameID, dropped); err != nil {
			h.logger.Warn().Err(err).Str("game_id", gameID).Msg("failed to archive evicted history")
		}
	}
}

func (h *Hub) broadcast(gameID string, msg ServerMessage) {
	h.mu.Lock()
	r, ok := h.rooms[gameID]
	if !ok {
		h.mu.Unlock()
		return
	}
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal server message")
		return
	}
	for _, c := range clients {
		c.send(data)
	}
}
