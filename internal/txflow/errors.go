package txflow

import (
	"errors"
	"fmt"
)

// ErrFlowBusy is returned when a second operation is started while one is
// still in flight. A new submission is only permitted after the prior one
// reaches Confirmed or Failed.
var ErrFlowBusy = errors.New("transaction flow busy: operation already in flight")

// ValidationError reports a local precondition failure. It is raised
// before any network call; no intent is submitted and no state changes.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// ChainRejectedError reports a transaction that was submitted and
// finalized as failed (e.g. a bid race lost to a concurrent higher bid).
// Distinct from a user rejection: ledger state may have changed, so the
// affected repositories are refreshed anyway.
type ChainRejectedError struct {
	Hash     string
	VMStatus string
}

func (e *ChainRejectedError) Error() string {
	return fmt.Sprintf("transaction %s rejected by chain: %s", e.Hash, e.VMStatus)
}
