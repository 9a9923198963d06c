package websocket

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks are delegated to the fronting proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades /ws/:gameId requests into game-room clients. When a JWT
// secret is configured, connections must carry a valid token query parameter.
type Handler struct {
	hub       *Hub
	jwtSecret string
	logger    zerolog.Logger
}

// NewHandler creates the websocket handler. An empty jwtSecret disables auth.
func NewHandler(hub *Hub, jwtSecret string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("component", "WSHandler").Logger(),
	}
}

// Handle is the gin route for websocket upgrades.
func (h *Handler) Handle(c *gin.Context) {
	gameID := c.Param("gameId")
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing game id"})
		return
	}

	if h.jwtSecret != "" {
		if err := h.validateToken(c.Query("token")); err != nil {
			h.logger.Warn().Err(err).Str("game_id", gameID).Msg("rejected websocket auth")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("game_id", gameID).Msg("websocket upgrade failed")
		return
	}

	client := newClient(gameID, h.hub, conn)
	h.hub.Join(gameID, client)
	go client.writePump()
	go client.readPump()
}

func (h *Handler) validateToken(raw string) error {
	if raw == "" {
		return errors.New("missing token")
	}
	_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	return err
}
