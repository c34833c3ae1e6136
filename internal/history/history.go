// Package history records the outcomes of orchestrated transactions for
// the client's local activity view. Only submitted transactions are
// recorded; validation failures never reach the ledger and leave no trace.
package history

import (
	"context"
	"errors"

	"nft-market-client/internal/domain"
)

// Store errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTx is returned when a transaction hash is recorded twice.
	ErrDuplicateTx = errors.New("duplicate transaction hash")
)

// Transaction outcome statuses.
const (
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Record is one submitted transaction and its outcome.
type Record struct {
	Hash        string
	Kind        string // operation kind, e.g. "place_bid"
	Actor       domain.Address
	SubjectID   uint64 // NFT or auction id the operation targeted
	AmountMinor uint64 // price/bid in minor units, 0 when not applicable
	Status      string
	VMStatus    string
	CreatedAt   int64 // Unix timestamp in milliseconds
}

// Store provides access to transaction history storage.
type Store interface {
	// Insert adds a record. Returns ErrDuplicateTx if the hash exists.
	Insert(ctx context.Context, r *Record) error

	// GetByHash retrieves a record. Returns ErrNotFound if not exists.
	GetByHash(ctx context.Context, hash string) (*Record, error)

	// GetByActor retrieves all records for an actor, newest first.
	GetByActor(ctx context.Context, actor domain.Address) ([]*Record, error)
}
