// Package store persists the local key-value state in a SQLite file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/quotemaker-dev/quotemaker/internal/codec"
	"github.com/quotemaker-dev/quotemaker/internal/model"
)

// ErrCorruptDocument is returned by LoadDocument when the saved document
// exists but cannot be decoded.
var ErrCorruptDocument = errors.New("saved document is corrupt")

// Keys of the persisted state.
const (
	KeyDocument          = "estimate-data"
	KeySequence          = "invoice-sequence"
	KeyPreferredTemplate = "preferred-template"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// Store is a string-valued key-value store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the SQLite state file at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	// One process, one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("State store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	s.logger.Debug("State saved", zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

// Delete removes key; a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// LoadDocument returns the saved current document.
func (s *Store) LoadDocument(ctx context.Context) (model.Document, bool, error) {
	raw, ok, err := s.Get(ctx, KeyDocument)
	if err != nil || !ok {
		return model.Document{}, false, err
	}
	doc, err := codec.DecodeJSON([]byte(raw))
	if err != nil {
		return model.Document{}, false, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return doc, true, nil
}

// SaveDocument replaces the saved current document.
func (s *Store) SaveDocument(ctx context.Context, doc model.Document) error {
	data, err := codec.EncodeJSON(doc)
	if err != nil {
		return err
	}
	return s.Set(ctx, KeyDocument, string(data))
}

// LoadSequence returns the saved sequence state, or nil if none exists.
func (s *Store) LoadSequence(ctx context.Context) (*model.SequenceState, error) {
	raw, ok, err := s.Get(ctx, KeySequence)
	if err != nil || !ok {
		return nil, err
	}
	var state model.SequenceState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decoding sequence state: %w", err)
	}
	return &state, nil
}

// SaveSequence stores the sequence state.
func (s *Store) SaveSequence(ctx context.Context, state model.SequenceState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding sequence state: %w", err)
	}
	return s.Set(ctx, KeySequence, string(data))
}

// PreferredTemplate returns the user's standing template choice. A missing
// or invalid value reports false; an invalid value is removed.
func (s *Store) PreferredTemplate(ctx context.Context) (model.DesignTemplate, bool, error) {
	raw, ok, err := s.Get(ctx, KeyPreferredTemplate)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || !model.DesignTemplate(n).Valid() {
		s.logger.Warn("Dropping invalid preferred template", zap.String("value", raw))
		return 0, false, s.Delete(ctx, KeyPreferredTemplate)
	}
	return model.DesignTemplate(n), true, nil
}

// SetPreferredTemplate stores t as the standing template choice.
func (s *Store) SetPreferredTemplate(ctx context.Context, t model.DesignTemplate) error {
	return s.Set(ctx, KeyPreferredTemplate, strconv.Itoa(int(t)))
}
