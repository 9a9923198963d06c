// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full server configuration.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	Server   ServerConfig
	Database DatabaseConfig
	AI       AIConfig
	CORS     CORSConfig
	Auth     AuthConfig
}

// ServerConfig covers the HTTP listener.
type ServerConfig struct {
	Port                int `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeoutSeconds  int `envconfig:"SERVER_READ_TIMEOUT" default:"15"`
	WriteTimeoutSeconds int `envconfig:"SERVER_WRITE_TIMEOUT" default:"15"`
	IdleTimeoutSeconds  int `envconfig:"SERVER_IDLE_TIMEOUT" default:"60"`
}

// DatabaseConfig covers persistence. Driver "memory" runs the server without
// PostgreSQL; sessions then live only as long as the process.
type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"postgres"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"soloplay"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
}

// ConnString renders the pgx connection string.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.MaxConns)
}

// AIConfig covers the narrator backend. BaseURL may point at any
// OpenAI-compatible endpoint.
type AIConfig struct {
	APIKey  string `envconfig:"AI_API_KEY"`
	Model   string `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	BaseURL string `envconfig:"AI_BASE_URL"`
}

// CORSConfig lists the origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// AuthConfig covers websocket auth. An empty secret disables token checks.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET"`
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("AI_API_KEY is not set")
	}
	return &cfg, nil
}
