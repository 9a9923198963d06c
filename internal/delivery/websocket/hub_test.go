package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soloplay-server/internal/domain"
	"soloplay-server/internal/service"
)

type fakeEngine struct {
	resp      *service.GameResponse
	err       error
	started   chan struct{}
	block     chan struct{}
	adventure string
	phase     string

	mu       sync.Mutex
	inputs   []string
	resume   []bool
	released []string
}

func (f *fakeEngine) ProcessRequest(_ context.Context, _, playerInput string, resume bool, emit service.EventEmitter) (*service.GameResponse, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.inputs = append(f.inputs, playerInput)
	f.resume = append(f.resume, resume)
	f.mu.Unlock()

	if emit != nil {
		emit.Status("The GM is thinking…")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return service.Reply("The story continues."), nil
}

func (f *fakeEngine) SessionInfo(_ context.Context, _ string) (string, string, error) {
	return f.adventure, f.phase, nil
}

func (f *fakeEngine) ReleaseSession(gameID string) {
	f.mu.Lock()
	f.released = append(f.released, gameID)
	f.mu.Unlock()
}

func newTestClient() *Client {
	return &Client{out: make(chan []byte, sendBuffer)}
}

func drain(t *testing.T, c *Client) []ServerMessage {
	t.Helper()
	var msgs []ServerMessage
	for {
		select {
		case data := <-c.out:
			var msg ServerMessage
			require.NoError(t, json.Unmarshal(data, &msg))
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func messageTypes(msgs []ServerMessage) []string {
	types := make([]string, len(msgs))
	for i, m := range msgs {
		types[i] = m.Type
	}
	return types
}

func TestJoinGreetsWithSessionAndHistory(t *testing.T) {
	engine := &fakeEngine{adventure: "The Sunken Vault", phase: "ACTIVE_PLAY"}
	hub := NewHub(engine, nil, nil, zerolog.Nop())
	client := newTestClient()

	hub.Join("g1", client)

	msgs := drain(t, client)
	require.Len(t, msgs, 2)
	assert.Equal(t, TypeSession, msgs[0].Type)
	assert.Equal(t, "g1", msgs[0].GameID)
	assert.Equal(t, "The Sunken Vault", msgs[0].AdventureName)
	assert.Equal(t, "ACTIVE_PLAY", msgs[0].Phase)
	assert.Equal(t, TypeHistory, msgs[1].Type)
	assert.Empty(t, msgs[1].History)
}

func TestHandleUserMessageBroadcastsTurn(t *testing.T) {
	draft := &domain.PlayerActorDraft{Name: "Mira"}
	engine := &fakeEngine{resp: service.Reply("You enter the vault.").WithDraftUpdate(draft)}
	hub := NewHub(engine, func(md string) string { return "<p>" + md + "</p>" }, nil, zerolog.Nop())

	c1, c2 := newTestClient(), newTestClient()
	hub.Join("g1", c1)
	hub.Join("g1", c2)
	drain(t, c1)
	drain(t, c2)

	hub.HandleUserMessage(context.Background(), "g1", c1, "open the vault")

	for _, c := range []*Client{c1, c2} {
		msgs := drain(t, c)
		assert.Equal(t,
			[]string{TypeUserEcho, TypeAssistantStart, TypeAssistantDelta, TypeAssistantDone, TypeDraftUpdate},
			messageTypes(msgs))
		assert.Equal(t, "open the vault", msgs[0].Markdown)
		assert.Equal(t, "You enter the vault.", msgs[3].Markdown)
		assert.Equal(t, "<p>You enter the vault.</p>", msgs[3].HTML)
		require.NotNil(t, msgs[4].Draft)
		assert.Equal(t, "Mira", msgs[4].Draft.Name)

		// start, delta, and done share one generation id.
		require.NotEmpty(t, msgs[1].ID)
		assert.Equal(t, msgs[1].ID, msgs[2].ID)
		assert.Equal(t, msgs[1].ID, msgs[3].ID)
	}

	// Both turns landed in the shared transcript.
	fresh := newTestClient()
	hub.Join("g1", fresh)
	msgs := drain(t, fresh)
	require.Len(t, msgs[1].History, 2)
	assert.Equal(t, "user", msgs[1].History[0].Role)
	assert.Equal(t, "assistant", msgs[1].History[1].Role)
}

func TestHandleUserMessageResumeFlag(t *testing.T) {
	engine := &fakeEngine{}
	hub := NewHub(engine, nil, nil, zerolog.Nop())
	client := newTestClient()
	hub.Join("g1", client)

	hub.HandleUserMessage(context.Background(), "g1", client, "/start")
	hub.HandleUserMessage(context.Background(), "g1", client, "look around")

	require.Equal(t, []string{"/start", "look around"}, engine.inputs)
	assert.Equal(t, []bool{true, false}, engine.resume)
}

func TestHandleUserMessageReportsEngineError(t *testing.T) {
	engine := &fakeEngine{err: fmt.Errorf("cannot confirm the character yet: missing class")}
	hub := NewHub(engine, nil, nil, zerolog.Nop())
	client := newTestClient()
	hub.Join("g1", client)
	drain(t, client)

	hub.HandleUserMessage(context.Background(), "g1", client, "/confirm")

	msgs := drain(t, client)
	last := msgs[len(msgs)-1]
	assert.Equal(t, TypeError, last.Type)
	assert.Contains(t, last.Error, "missing class")
	assert.Equal(t, msgs[1].ID, last.ID, "the error carries the failed generation's id")
}

func TestHandleUserMessageSingleFlight(t *testing.T) {
	engine := &fakeEngine{started: make(chan struct{}, 1), block: make(chan struct{})}
	hub := NewHub(engine, nil, nil, zerolog.Nop())
	c1, c2 := newTestClient(), newTestClient()
	hub.Join("g1", c1)
	hub.Join("g1", c2)
	drain(t, c1)
	drain(t, c2)

	done := make(chan struct{})
	go func() {
		hub.HandleUserMessage(context.Background(), "g1", c1, "first")
		close(done)
	}()
	<-engine.started
	drain(t, c2) // the first turn's echo and start already reached c2

	hub.HandleUserMessage(context.Background(), "g1", c2, "second")
	msgs := drain(t, c2)
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeError, msgs[0].Type)
	assert.Contains(t, msgs[0].Error, "already in progress")

	close(engine.block)
	<-done
	assert.Equal(t, []string{"first"}, engine.inputs)
}

func TestHistoryEvictionArchives(t *testing.T) {
	var archivedGame string
	var archivedCount int
	archive := func(_ context.Context, gameID string, dropped int) error {
		archivedGame = gameID
		archivedCount += dropped
		return nil
	}
	hub := NewHub(&fakeEngine{}, nil, archive, zerolog.Nop())
	client := newTestClient()
	hub.Join("g1", client)

	hub.mu.Lock()
	r := hub.rooms["g1"]
	for i := 0; i < maxHistory; i++ {
		r.history = append(r.history, HistoryEntry{Role: "assistant", Markdown: fmt.Sprintf("line %d", i)})
	}
	hub.mu.Unlock()

	hub.HandleUserMessage(context.Background(), "g1", client, "hello")

	assert.Equal(t, "g1", archivedGame)
	assert.Equal(t, 2, archivedCount, "user echo and reply each push one entry out")

	hub.mu.Lock()
	assert.Len(t, r.history, maxHistory)
	assert.Equal(t, "The story continues.", r.history[maxHistory-1].Markdown)
	hub.mu.Unlock()
}

func TestLeaveLastClientReleasesRoom(t *testing.T) {
	engine := &fakeEngine{}
	hub := NewHub(engine, nil, nil, zerolog.Nop())
	c1, c2 := newTestClient(), newTestClient()
	hub.Join("g1", c1)
	hub.Join("g1", c2)

	hub.Leave("g1", c1)
	hub.mu.Lock()
	_, ok := hub.rooms["g1"]
	hub.mu.Unlock()
	assert.True(t, ok)
	assert.Empty(t, engine.released)

	hub.Leave("g1", c2)
	hub.mu.Lock()
	_, ok = hub.rooms["g1"]
	hub.mu.Unlock()
	assert.False(t, ok)
	assert.Equal(t, []string{"g1"}, engine.released, "the engine drops live session state with the room")
}
