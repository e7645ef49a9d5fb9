package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/osa030/xiamibox/internal/domain/track"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tracks (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLiteConfig configures the SQLite store.
// Path may be ":memory:".
type SQLiteConfig struct {
	Path         string `mapstructure:"path" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" default:"1" validate:"gte=1"`
}

// SQLite stores each record as a JSON payload row keyed by track id.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database and creates the schema if needed.
func NewSQLite(cfg SQLiteConfig) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SQLite{db: db}, nil
}

// Set implements Store.
func (s *SQLite) Set(ctx context.Context, id string, rec track.Record) error {
	if id == "" {
		return ErrEmptyID
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "failed to encode track %s", id)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tracks (id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		id, string(payload), time.Now().UTC())
	if err != nil {
		return errors.Wrapf(err, "failed to store track %s", id)
	}
	return nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, id string) (track.Record, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM tracks WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return track.Record{}, nil
	}
	if err != nil {
		return track.Record{}, errors.Wrapf(err, "failed to read track %s", id)
	}

	var rec track.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return track.Record{}, errors.Wrapf(err, "failed to decode track %s", id)
	}
	return rec, nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
