package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/ddssec-engine/interfaces"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS objects (
	name TEXT PRIMARY KEY,
	data BLOB NOT NULL
)`

// SQLiteBackend implements an object store in a single SQLite table.
type SQLiteBackend struct {
	db          *sql.DB
	path        string
	log         *slog.Logger
	locationURI string
}

// NewSQLiteBackend opens (or creates) the database at path and ensures the objects table exists.
func NewSQLiteBackend(path string, log *slog.Logger) (*SQLiteBackend, error) {
	dsn := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("migration: %w", err)
	}

	return &SQLiteBackend{
		db:          db,
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("sqlite://%s", path),
	}, nil
}

// Load reads the object row.
func (b *SQLiteBackend) Load(ctx context.Context, name string) ([]byte, error) {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return nil, err
	}

	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT data FROM objects WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query object: %w", err)
	}

	b.log.Debug("Loaded object from sqlite",
		slog.String("object", name),
		slog.Int("size", len(data)))

	return data, nil
}

// Store inserts or replaces the object row.
func (b *SQLiteBackend) Store(ctx context.Context, name string, data []byte) error {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return err
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO objects (name, data) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data`,
		name, data)
	if err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

// Available pings the database.
func (b *SQLiteBackend) Available(ctx context.Context) bool {
	if err := b.db.PingContext(ctx); err != nil {
		b.log.Debug("SQLite backend unavailable", "err", err)
		return false
	}
	return true
}

func (b *SQLiteBackend) Name() string {
	return fmt.Sprintf("sqlite-%s", b.path)
}

func (b *SQLiteBackend) LocationURI() string {
	return b.locationURI
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }
