package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"

	"soloplay-server/internal/config"
	"soloplay-server/internal/database"
	delivery "soloplay-server/internal/delivery/http"
	ws "soloplay-server/internal/delivery/websocket"
	"soloplay-server/internal/logger"
	"soloplay-server/internal/narrator"
	"soloplay-server/internal/repository"
	"soloplay-server/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)
	ctx := context.Background()

	var repo repository.GameRepository
	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("running with in-memory storage, sessions will not survive a restart")
		repo = repository.NewMemoryRepository()
	} else {
		db, err := database.Connect(ctx, cfg.Database.ConnString(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize database")
		}
		defer db.Close()
		repo = repository.NewPostgresRepository(db, log)
	}

	aiClient := narrator.NewOpenAIClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, log)
	engine := service.NewGameEngine(repo, aiClient, aiClient, nil, log)

	hub := ws.NewHub(engine, nil, engine.ArchiveHistory, log)
	wsHandler := ws.NewHandler(hub, cfg.Auth.JWTSecret, log)
	restHandler := delivery.NewHandler(repo, log)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	ginprometheus.NewPrometheus("soloplay").Use(router)

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.GET("/ws/:gameId", wsHandler.Handle)
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	restHandler.RegisterRoutes(router.Group("/api"))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("server stopped")
}
