package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"ContractGuard/internal/ports"
)

const kvTable = "kv_store"

// SQLStore persists key-value pairs in sqlite or Postgres.
type SQLStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

var _ ports.KVStore = (*SQLStore)(nil)

// OpenSQLStore opens the database for driver ("sqlite3" or "postgres") and
// creates the table if needed.
func OpenSQLStore(driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store, err := NewSQLStore(db, driver, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wires an existing sql.DB.
func NewSQLStore(db *sql.DB, driver string, logger *slog.Logger) (*SQLStore, error) {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == "postgres" {
		placeholder = sq.Dollar
	}

	if err := createKVTable(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder).RunWith(db),
		logger:  logger,
	}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func createKVTable(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	_, err := db.Exec(schema)
	return err
}

// Get returns the stored value. Database errors are logged and read as absent.
func (s *SQLStore) Get(key string) (string, bool) {
	var value string
	err := s.builder.
		Select("value").
		From(kvTable).
		Where(sq.Eq{"key": key}).
		QueryRow().
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.warn("kv get failed", "key", key, "error", err)
		return "", false
	}
	return value, true
}

// Set upserts the value for key.
func (s *SQLStore) Set(key, value string) error {
	_, err := s.builder.
		Insert(kvTable).
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		Exec()
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Remove deletes key; a missing key is not an error.
func (s *SQLStore) Remove(key string) error {
	_, err := s.builder.
		Delete(kvTable).
		Where(sq.Eq{"key": key}).
		Exec()
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
