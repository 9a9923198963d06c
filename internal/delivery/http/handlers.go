// Package http exposes the REST surface: session management and read access
// to the world record (actors, locations, events).
package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"soloplay-server/internal/domain"
	"soloplay-server/internal/repository"
)

// Handler serves the game REST API.
type Handler struct {
	repo   repository.GameRepository
	logger zerolog.Logger
}

// NewHandler creates the REST handler.
func NewHandler(repo repository.GameRepository, logger zerolog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger.With().Str("component", "HTTPHandler").Logger(),
	}
}

// RegisterRoutes mounts the API under the given group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/games", h.ListGames)
	api.POST("/games", h.CreateGame)
	api.GET("/games/:gameId", h.GetGame)
	api.DELETE("/games/:gameId", h.DeleteGame)

	api.GET("/games/:gameId/actors", h.ListActors)
	api.GET("/games/:gameId/actors/:name", h.GetActor)
	api.GET("/games/:gameId/party", h.ListParty)
	api.GET("/games/:gameId/locations", h.ListLocations)
	api.GET("/games/:gameId/events", h.ListEvents)
}

func (h *Handler) ListGames(c *gin.Context) {
	games, err := h.repo.ListGames(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

type createGameRequest struct {
	GameID        string `json:"gameId" binding:"required"`
	AdventureName string `json:"adventureName"`
}

func (h *Handler) CreateGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gameId is required"})
		return
	}
	gameID := strings.TrimSpace(req.GameID)
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gameId is required"})
		return
	}

	game, err := h.repo.GetOrCreateGame(c.Request.Context(), gameID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if name := strings.TrimSpace(req.AdventureName); name != "" && game.AdventureName == "" {
		game.AdventureName = name
		if err := h.repo.SaveGame(c.Request.Context(), game); err != nil {
			h.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusCreated, game)
}

func (h *Handler) GetGame(c *gin.Context) {
	game, err := h.repo.FindGameByID(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

func (h *Handler) DeleteGame(c *gin.Context) {
	if err := h.repo.DeleteGame(c.Request.Context(), c.Param("gameId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListActors(c *gin.Context) {
	actors, err := h.repo.ListActors(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, actors)
}

func (h *Handler) GetActor(c *gin.Context) {
	actor, err := h.repo.FindActorByNameOrAlias(c.Request.Context(), c.Param("gameId"), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, actor)
}

func (h *Handler) ListParty(c *gin.Context) {
	party, err := h.repo.ListPlayerActors(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, party)
}

func (h *Handler) ListLocations(c *gin.Context) {
	locations, err := h.repo.ListLocations(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, locations)
}

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.repo.ListEvents(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
