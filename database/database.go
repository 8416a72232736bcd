package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/chorecast/chorecast/config"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// Open connects to Postgres and tunes the connection pool.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate applies the embedded schema. All statements are idempotent, so
// this runs on every startup.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
