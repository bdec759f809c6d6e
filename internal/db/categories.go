package db

import (
	"strings"
)

// DefaultCategories are offered before the user has added any of their own
var DefaultCategories = []string{"Work", "Personal", "Shopping", "Health", "Finance"}

// ListCategories returns the cached category suggestions in the order they were added
func (db *DB) ListCategories() ([]string, error) {
	rows, err := db.Query("SELECT name FROM categories ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AddCategory remembers a category suggestion. The name is trimmed; blank
// names and names already cached are ignored. It returns the trimmed name.
func (db *DB) AddCategory(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	_, err := db.Exec("INSERT OR IGNORE INTO categories (name) VALUES (?)", name)
	if err != nil {
		return "", err
	}
	return name, nil
}

// seedCategories inserts the defaults the first time the database is opened
func (db *DB) seedCategories() error {
	seeded, err := db.GetSetting(keySeeded)
	if err != nil {
		return err
	}
	if seeded != "" {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range DefaultCategories {
		if _, err := tx.Exec("INSERT OR IGNORE INTO categories (name) VALUES (?)", name); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("INSERT INTO settings (key, value) VALUES (?, '1')", keySeeded); err != nil {
		return err
	}
	return tx.Commit()
}
