// Package sqlite provides a durable history store backed by SQLite, so
// the local activity view survives client restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-sqlite3"

	"nft-market-client/internal/domain"
	"nft-market-client/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	hash         TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	actor        TEXT NOT NULL,
	subject_id   INTEGER NOT NULL,
	amount_minor INTEGER NOT NULL,
	status       TEXT NOT NULL,
	vm_status    TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_actor ON transactions(actor, created_at DESC);
`

const (
	queryInsert = `INSERT INTO transactions
		(hash, kind, actor, subject_id, amount_minor, status, vm_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	queryGetByHash = `SELECT hash, kind, actor, subject_id, amount_minor, status, vm_status, created_at
		FROM transactions WHERE hash = ?`
	queryGetByActor = `SELECT hash, kind, actor, subject_id, amount_minor, status, vm_status, created_at
		FROM transactions WHERE actor = ? ORDER BY created_at DESC, hash DESC`
)

// Store is a SQLite-backed implementation of history.Store.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// NewStore opens (or creates) the database at path and initializes the
// schema. A nil logger falls back to a default stderr logger.
func NewStore(ctx context.Context, path string, logger *log.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path cannot be empty")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[history] ", log.LstdFlags)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("unable to open history database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping history database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to initialize history schema: %w", err)
	}

	logger.Printf("history database opened at %s", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert adds a record. Returns history.ErrDuplicateTx if the hash exists.
func (s *Store) Insert(ctx context.Context, r *history.Record) error {
	_, err := s.db.ExecContext(ctx, queryInsert,
		r.Hash, r.Kind, string(r.Actor), int64(r.SubjectID), int64(r.AmountMinor),
		r.Status, r.VMStatus, r.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return history.ErrDuplicateTx
		}
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// GetByHash retrieves a record. Returns history.ErrNotFound if not exists.
func (s *Store) GetByHash(ctx context.Context, hash string) (*history.Record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, queryGetByHash, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, history.ErrNotFound
		}
		return nil, fmt.Errorf("get history record: %w", err)
	}
	return r, nil
}

// GetByActor retrieves all records for an actor, newest first.
func (s *Store) GetByActor(ctx context.Context, actor domain.Address) ([]*history.Record, error) {
	rows, err := s.db.QueryContext(ctx, queryGetByActor, string(actor))
	if err != nil {
		return nil, fmt.Errorf("query history by actor: %w", err)
	}
	defer rows.Close()

	var out []*history.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*history.Record, error) {
	var (
		r           history.Record
		actor       string
		subjectID   int64
		amountMinor int64
	)
	err := row.Scan(&r.Hash, &r.Kind, &actor, &subjectID, &amountMinor,
		&r.Status, &r.VMStatus, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Actor = domain.Address(actor)
	r.SubjectID = uint64(subjectID)
	r.AmountMinor = uint64(amountMinor)
	return &r, nil
}
