package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soloplay-server/internal/domain"
	"soloplay-server/internal/repository"
)

func newTestRouter(repo repository.GameRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(repo, zerolog.Nop()).RegisterRoutes(router.Group("/api"))
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetGame(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository())

	rec := doRequest(router, http.MethodPost, "/api/games",
		`{"gameId": "g1", "adventureName": "The Sunken Vault"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/games/g1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var game domain.GameState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &game))
	assert.Equal(t, "g1", game.GameID)
	assert.Equal(t, "The Sunken Vault", game.AdventureName)
	assert.Equal(t, domain.PhaseCharacterCreation, game.GamePhase)
}

func TestCreateGameRequiresID(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository())

	rec := doRequest(router, http.MethodPost, "/api/games", `{"adventureName": "nameless"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetGameNotFound(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository())

	rec := doRequest(router, http.MethodGet, "/api/games/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteGameCascades(t *testing.T) {
	repo := repository.NewMemoryRepository()
	_, err := repo.GetOrCreateGame(context.Background(), "g1")
	require.NoError(t, err)
	actor := domain.NewActor("g1", domain.Patch{Name: "Dolgrim"})
	require.NoError(t, repo.SaveActor(context.Background(), actor))

	router := newTestRouter(repo)
	rec := doRequest(router, http.MethodDelete, "/api/games/g1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/games/g1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	actors, err := repo.ListActors(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, actors)
}

func TestActorListingsAndLookup(t *testing.T) {
	repo := repository.NewMemoryRepository()
	_, err := repo.GetOrCreateGame(context.Background(), "g1")
	require.NoError(t, err)

	npc := domain.NewActor("g1", domain.Patch{Name: "Dolgrim", Aliases: []string{"the smith"}})
	require.NoError(t, repo.SaveActor(context.Background(), npc))
	pc := domain.NewPlayerActor("g1", &domain.PlayerActorDraft{Name: "Mira", Class: "Rogue", Level: 3})
	require.NoError(t, repo.SaveActor(context.Background(), pc))

	router := newTestRouter(repo)

	rec := doRequest(router, http.MethodGet, "/api/games/g1/actors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var actors []domain.Actor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &actors))
	assert.Len(t, actors, 2)

	rec = doRequest(router, http.MethodGet, "/api/games/g1/party", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var party []domain.Actor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &party))
	require.Len(t, party, 1)
	assert.Equal(t, "Mira", party[0].Name)

	// Lookup is case-insensitive and honors aliases.
	rec = doRequest(router, http.MethodGet, "/api/games/g1/actors/the%20smith", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var actor domain.Actor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &actor))
	assert.Equal(t, "Dolgrim", actor.Name)

	rec = doRequest(router, http.MethodGet, "/api/games/g1/actors/nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventListing(t *testing.T) {
	repo := repository.NewMemoryRepository()
	_, err := repo.GetOrCreateGame(context.Background(), "g1")
	require.NoError(t, err)
	require.NoError(t, repo.SaveEvent(context.Background(), domain.NewEvent("g1", 1, "It began.")))

	router := newTestRouter(repo)
	rec := doRequest(router, http.MethodGet, "/api/games/g1/events", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []domain.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "It began.", events[0].Summary)
}
