package server

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server needs, parsed from the environment.
// Initialization order is: ParseConfig -> OpenDB (ping) -> migrations ->
// NewImageStore (bucket check) -> New -> Start. Any failure before Start
// is fatal.
type Config struct {
	Port string `env:"ICB_PORT" envDefault:"3000"`

	DBHost string `env:"ICB_DB_HOST" envDefault:"localhost"`
	DBPort string `env:"ICB_DB_PORT" envDefault:"5432"`
	DBUser string `env:"ICB_DB_USER"`
	DBPass string `env:"ICB_DB_PASS"`
	DBName string `env:"ICB_DB_NAME"`

	S3Endpoint  string `env:"ICB_S3_ENDPOINT"`
	S3AccessKey string `env:"ICB_S3_ACCESS_KEY"`
	S3SecretKey string `env:"ICB_S3_SECRET_KEY"`
	S3Bucket    string `env:"ICB_S3_BUCKET"`
	// Base URL images are served from, e.g. "https://media.example.com".
	// Defaults to the endpoint itself for path-style access.
	S3PublicURL string `env:"ICB_S3_PUBLIC_URL"`

	JWTSecret string `env:"ICB_JWT_SECRET"`
}

// ParseConfig loads configuration from environment variables and checks
// the values the server cannot run without.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBUser == "" || cfg.DBName == "" {
		return Config{}, fmt.Errorf("ICB_DB_USER and ICB_DB_NAME are required")
	}
	if cfg.S3Endpoint == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" || cfg.S3Bucket == "" {
		return Config{}, fmt.Errorf("media storage configuration incomplete")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("ICB_JWT_SECRET is required")
	}
	return cfg, nil
}

// DSN assembles the Postgres connection string from the discrete DB vars.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
