// Command seed creates or updates the admin account. Accounts are managed
// only through this command; the HTTP surface never writes to admins.
package main

import (
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/waFerreiraa/backendICB/internal/db"
	"github.com/waFerreiraa/backendICB/internal/server"
)

func main() {
	username := os.Getenv("ICB_SEED_USER")
	password := os.Getenv("ICB_SEED_PASS")
	if username == "" || password == "" {
		log.Printf("service=seed msg=%q", "ICB_SEED_USER and ICB_SEED_PASS are required")
		os.Exit(1)
	}

	// Only the database settings matter here; the media and token config
	// checks in ParseConfig do not apply.
	var cfg server.Config
	if err := env.Parse(&cfg); err != nil {
		log.Printf("service=seed msg=%q err=%v", "config_invalid", err)
		os.Exit(1)
	}
	if cfg.DBUser == "" || cfg.DBName == "" {
		log.Printf("service=seed msg=%q", "ICB_DB_USER and ICB_DB_NAME are required")
		os.Exit(1)
	}

	dbConn, err := server.OpenDB(cfg.DSN())
	if err != nil {
		log.Printf("service=seed msg=%q err=%v", "db_connect_failed", err)
		os.Exit(1)
	}
	defer func() { _ = dbConn.Close() }()

	if err := db.RunMigrations(dbConn); err != nil {
		log.Printf("service=seed msg=%q err=%v", "migration_failed", err)
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Printf("service=seed msg=%q err=%v", "hash_failed", err)
		os.Exit(1)
	}

	_, err = dbConn.Exec(`
		INSERT INTO admins (id, username, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
	`, uuid.New(), username, string(hash))
	if err != nil {
		log.Printf("service=seed msg=%q err=%v", "seed_failed", err)
		os.Exit(1)
	}

	log.Printf("service=seed msg=%q username=%s", "admin_seeded", username)
}
