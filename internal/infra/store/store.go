// Package store is the source-of-truth row store for members and
// administrators. Every committed mutation is mirrored onto the change feed,
// the way a managed database's row-level feed would report it.
package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"parishd/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS members (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	email            TEXT NOT NULL UNIQUE,
	phone            TEXT NOT NULL DEFAULT '',
	bio              TEXT NOT NULL DEFAULT '',
	branch           TEXT NOT NULL,
	role             TEXT NOT NULL DEFAULT 'user',
	approval_status  TEXT NOT NULL DEFAULT 'pending',
	is_active        INTEGER NOT NULL DEFAULT 1,
	approved_by      TEXT NOT NULL DEFAULT '',
	approved_at      DATETIME,
	rejection_reason TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_members_status ON members(approval_status);
CREATE INDEX IF NOT EXISTS idx_members_branch ON members(branch);

CREATE TABLE IF NOT EXISTS administrators (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	role       TEXT NOT NULL DEFAULT 'admin',
	branch     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// Store wraps the SQLite database and the change publisher.
type Store struct {
	db     *sqlx.DB
	feed   domain.ChangePublisher
	logger *zap.Logger
}

// Open opens (or creates) the database at path, applies pragmas, and ensures
// the schema. The publisher receives one event per committed mutation; pass
// nil to run without a feed (validation, one-off tooling).
func Open(path string, feed domain.ChangePublisher, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &Store{db: db, feed: feed, logger: logger.Named("store")}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) publish(ev domain.ChangeEvent) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ev)
}
