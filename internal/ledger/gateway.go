// Package ledger provides read and finality-wait access to a remote
// ledger node over its REST API.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
)

// Gateway defines the ledger node interface used by repositories and the
// transaction orchestrator.
type Gateway interface {
	// View invokes a read-only module function. The return shape is
	// function-specific and destructured positionally by the caller.
	View(ctx context.Context, function string, typeArguments, arguments []string) ([]json.RawMessage, error)

	// AccountResource fetches a named resource blob under an address and
	// returns its data field.
	AccountResource(ctx context.Context, address, resourceType string) (json.RawMessage, error)

	// WaitForTransaction blocks until the transaction identified by hash
	// reaches finality and reports its outcome. There is no client-enforced
	// deadline; the context is the only bound.
	WaitForTransaction(ctx context.Context, hash string) (*TransactionResult, error)
}

// TransactionResult is the finality outcome of a submitted transaction.
type TransactionResult struct {
	Hash     string
	Success  bool
	VMStatus string
	Version  uint64
}

// NetworkError wraps a transport-level failure talking to the node.
// Repositories keep their stale snapshot when they see one; the next poll
// or manual refresh retries.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
