package database

import (
	"database/sql"
	"fmt"
	log "github.com/sirupsen/logrus"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is the bot's sqlite database
type DB struct {
	*sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		coin_name TEXT NOT NULL,
		target_price TEXT NOT NULL,
		condition TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT NOT NULL DEFAULT '',
		label_value TEXT NOT NULL DEFAULT '',
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`,
	`CREATE TABLE IF NOT EXISTS chats (
		chat_id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		chat_type TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
}

// Open opens (and creates when needed) the sqlite database at dbPath
func Open(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// a single connection keeps :memory: databases alive and serialises writers
	conn.SetMaxOpenConns(1)

	for _, q := range schema {
		if _, err := conn.Exec(q); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	log.Println("Database initialized successfully.")
	return &DB{DB: conn}, nil
}

// Close closes the database
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}
