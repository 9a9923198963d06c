// Package websocket is the live session gateway: one room per game, a shared
// bounded transcript, and single-flight turn processing.
package websocket

import "soloplay-server/internal/domain"

// Server-to-client message types.
const (
	TypeSession        = "session"
	TypeHistory        = "history"
	TypeUserEcho       = "user_echo"
	TypeAssistantStart = "assistant_start"
	TypeAssistantDelta = "assistant_delta"
	TypeAssistantDone  = "assistant_done"
	TypeDraftUpdate    = "draft_update"
	TypeError          = "error"
)

// Client-to-server message types.
const (
	TypeUserMessage    = "user_message"
	TypeHistoryRequest = "history_request"
)

// HistoryEntry is one line of the session transcript.
type HistoryEntry struct {
	Role     string `json:"role"` // "user" or "assistant"
	Markdown string `json:"markdown"`
	HTML     string `json:"html,omitempty"`
	At       int64  `json:"at"`
}

// ServerMessage is the envelope for everything the gateway sends. Fields
// beyond Type are populated per message type. ID correlates the assistant
// messages of one generation (start, deltas, done, or a failure).
type ServerMessage struct {
	Type          string                   `json:"type"`
	ID            string                   `json:"id,omitempty"`
	GameID        string                   `json:"gameId,omitempty"`
	AdventureName string                   `json:"adventureName,omitempty"`
	Phase         string                   `json:"phase,omitempty"`
	Markdown      string                   `json:"markdown,omitempty"`
	HTML          string                   `json:"html,omitempty"`
	Text          string                   `json:"text,omitempty"`
	History       []HistoryEntry           `json:"history,omitempty"`
	Draft         *domain.PlayerActorDraft `json:"draft,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

// ClientMessage is the envelope for everything a client sends.
type ClientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}
