package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

const fileName = "stmc.db"

// Setting keys
const (
	KeyToken   = "token"
	KeySortKey = "sort_key"
	keySeeded  = "categories_seeded"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// New opens (creating if needed) the database in dataDir and initializes the
// schema. An empty dataDir means the XDG data directory.
func New(dataDir string) (*DB, error) {
	if dataDir == "" {
		var err error
		dataDir, err = DefaultDataDir()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(dataDir, fileName)

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db}
	if err := d.seedCategories(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	return d, nil
}

// DefaultDataDir returns $XDG_DATA_HOME/stmc, falling back to ~/.local/share/stmc
func DefaultDataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "stmc"), nil
}

// GetSetting retrieves a setting value by key
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting sets a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// DeleteSetting removes a setting
func (db *DB) DeleteSetting(key string) error {
	_, err := db.Exec("DELETE FROM settings WHERE key = ?", key)
	return err
}

// Token returns the stored session token, or "" when signed out
func (db *DB) Token() (string, error) {
	return db.GetSetting(KeyToken)
}

// SetToken stores the session token
func (db *DB) SetToken(token string) error {
	return db.SetSetting(KeyToken, token)
}

// ClearToken forgets the session token
func (db *DB) ClearToken() error {
	return db.DeleteSetting(KeyToken)
}
