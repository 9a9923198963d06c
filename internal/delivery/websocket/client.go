package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	maxMessageSize = 64 << 10
	sendBuffer     = 256
)

// Client is one websocket connection bound to a game room.
type Client struct {
	id     uuid.UUID
	gameID string
	hub    *Hub
	conn   *websocket.Conn

	out       chan []byte
	closeOnce sync.Once
}

func newClient(gameID string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.New(),
		gameID: gameID,
		hub:    hub,
		conn:   conn,
		out:    make(chan []byte, sendBuffer),
	}
}

func (c *Client) enqueue(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.send(data)
}

// send queues data for the write pump. A client too slow to drain its buffer
// loses messages rather than stalling the room.
func (c *Client) send(data []byte) {
	select {
	case c.out <- data:
	default:
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.out) })
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c.gameID, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Str("game_id", c.gameID).Msg("websocket read failed")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(ServerMessage{Type: TypeError, GameID: c.gameID, Error: "malformed message"})
			continue
		}

		switch msg.Type {
		case TypeUserMessage:
			// Turns run off the read loop so pings keep flowing while the
			// narrator works; the room's turn slot rejects overlap.
			go c.hub.HandleUserMessage(context.Background(), c.gameID, c, msg.Content)
		case TypeHistoryRequest:
			c.hub.SendHistory(c.gameID, c)
		default:
			c.enqueue(ServerMessage{Type: TypeError, GameID: c.gameID, Error: "unknown message type"})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
