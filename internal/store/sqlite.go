package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db       *sql.DB
	stageDir string
}

func NewSQLiteStore(dbPath, stageDir string) (*SQLiteStore, error) {
	// Ensure directories exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	if err := os.MkdirAll(stageDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:       db,
		stageDir: stageDir,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Key-Value Implementation

func (s *SQLiteStore) SetValue(key, value string) error {
	query := `INSERT INTO configuration (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := s.db.Exec(query, key, value)
	return err
}

func (s *SQLiteStore) Value(key string) (string, error) {
	query := `SELECT value FROM configuration WHERE key = ?`
	row := s.db.QueryRow(query, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil // Absent keys read as empty
		}
		return "", err
	}
	return value, nil
}

func (s *SQLiteStore) DeleteValue(key string) error {
	_, err := s.db.Exec(`DELETE FROM configuration WHERE key = ?`, key)
	return err
}

// Staged Binary Implementation

func (s *SQLiteStore) StageAsset(id string, content []byte) (string, error) {
	fullPath := filepath.Join(s.stageDir, filepath.Base(id))
	if err := os.WriteFile(fullPath, content, 0600); err != nil {
		return "", fmt.Errorf("failed to write staged asset: %w", err)
	}
	return fullPath, nil
}

func (s *SQLiteStore) ReadAsset(id string) ([]byte, error) {
	fullPath := filepath.Join(s.stageDir, filepath.Base(id))
	content, err := os.ReadFile(fullPath) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read staged asset: %w", err)
	}
	return content, nil
}

func (s *SQLiteStore) RemoveAsset(id string) error {
	fullPath := filepath.Join(s.stageDir, filepath.Base(id))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged asset: %w", err)
	}
	return nil
}
