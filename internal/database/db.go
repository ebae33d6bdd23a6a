package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Load statuses
const (
	LoadRunning = "running"
	LoadSuccess = "success"
	LoadFailed  = "failed"
)

// DB wraps the SQLite database
type DB struct {
	*sql.DB
}

// LoadHistory records one attempt to load the price sheet
type LoadHistory struct {
	ID           int64      `json:"id"`
	Source       string     `json:"source"`
	Format       string     `json:"format"`
	Status       string     `json:"status"` // "running", "success", "failed"
	RowsLoaded   int        `json:"rowsLoaded"`
	ItemsLoaded  int        `json:"itemsLoaded"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// Setting represents an application setting (key-value pair)
type Setting struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	DataType    string    `json:"dataType"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Open opens or creates the database
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection, so ":memory:" databases keep their schema
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db}, nil
}

// CreateLoadHistory inserts a load record and sets its ID
func (db *DB) CreateLoadHistory(lh *LoadHistory) error {
	result, err := db.Exec(`
		INSERT INTO load_history (source, format, status, rows_loaded, items_loaded, error_message, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, lh.Source, lh.Format, lh.Status, lh.RowsLoaded, lh.ItemsLoaded, lh.ErrorMessage, lh.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create load history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	lh.ID = id
	return nil
}

// UpdateLoadHistory stores the outcome of a load
func (db *DB) UpdateLoadHistory(lh *LoadHistory) error {
	_, err := db.Exec(`
		UPDATE load_history
		SET format = ?, status = ?, rows_loaded = ?, items_loaded = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, lh.Format, lh.Status, lh.RowsLoaded, lh.ItemsLoaded, lh.ErrorMessage, lh.CompletedAt, lh.ID)
	return err
}

// GetLoadHistory returns the most recent loads first
func (db *DB) GetLoadHistory(limit int) ([]LoadHistory, error) {
	rows, err := db.Query(`
		SELECT id, source, format, status, rows_loaded, items_loaded, error_message, started_at, completed_at
		FROM load_history
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []LoadHistory{}
	for rows.Next() {
		var lh LoadHistory
		err := rows.Scan(&lh.ID, &lh.Source, &lh.Format, &lh.Status, &lh.RowsLoaded,
			&lh.ItemsLoaded, &lh.ErrorMessage, &lh.StartedAt, &lh.CompletedAt)
		if err != nil {
			return nil, err
		}
		history = append(history, lh)
	}
	return history, rows.Err()
}

// GetAllSettings returns all application settings
func (db *DB) GetAllSettings() ([]Setting, error) {
	rows, err := db.Query(`
		SELECT id, key, value, COALESCE(description, ''), data_type, created_at, updated_at
		FROM settings
		ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		err := rows.Scan(&s.ID, &s.Key, &s.Value, &s.Description, &s.DataType, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// GetSetting returns a single setting by key
func (db *DB) GetSetting(key string) (*Setting, error) {
	var s Setting
	err := db.QueryRow(`
		SELECT id, key, value, COALESCE(description, ''), data_type, created_at, updated_at
		FROM settings
		WHERE key = ?
	`, key).Scan(&s.ID, &s.Key, &s.Value, &s.Description, &s.DataType, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Setting not found
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSetting updates the value of an existing setting
func (db *DB) UpdateSetting(key, value string) error {
	result, err := db.Exec(`
		UPDATE settings
		SET value = ?, updated_at = CURRENT_TIMESTAMP
		WHERE key = ?
	`, value, key)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unknown setting: %s", key)
	}
	return nil
}

// SettingsMap returns every setting value keyed by setting key
func (db *DB) SettingsMap() (map[string]string, error) {
	settings, err := db.GetAllSettings()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(settings))
	for _, s := range settings {
		m[s.Key] = s.Value
	}
	return m, nil
}
