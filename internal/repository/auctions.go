package repository

import (
	"context"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"nft-market-client/internal/contract"
	"nft-market-client/internal/domain"
	"nft-market-client/internal/ledger"
	"nft-market-client/internal/observability"
)

// Auctions holds the current auction set.
type Auctions struct {
	gateway ledger.Gateway
	mod     contract.Module
	logger  *log.Logger

	sf    singleflight.Group
	mu    sync.RWMutex
	items []domain.Auction
}

// NewAuctions creates an auctions repository.
func NewAuctions(gateway ledger.Gateway, mod contract.Module, logger *log.Logger) *Auctions {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Auctions{gateway: gateway, mod: mod, logger: logger}
}

// Refresh fetches all auctions and replaces the snapshot. Concurrent
// calls coalesce into one view invocation.
func (r *Auctions) Refresh(ctx context.Context) error {
	_, err, _ := r.sf.Do("refresh", func() (interface{}, error) {
		done := observability.TimeRefresh("auctions")
		items, err := r.fetch(ctx)
		done(err)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.items = items
		r.mu.Unlock()
		observability.SetSnapshotSize("auctions", len(items))
		return nil, nil
	})
	return err
}

func (r *Auctions) fetch(ctx context.Context) ([]domain.Auction, error) {
	values, err := r.gateway.View(ctx, r.mod.Function(contract.FnGetAllAuctions), nil, nil)
	if err != nil {
		return nil, err
	}

	auctions, err := contract.DecodeAuctions(values)
	if err != nil {
		return nil, err
	}

	sort.Slice(auctions, func(i, j int) bool { return auctions[i].ID < auctions[j].ID })
	return auctions, nil
}

// Snapshot returns the last successfully fetched auction set, ordered by
// auction id.
func (r *Auctions) Snapshot() []domain.Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Auction, len(r.items))
	copy(out, r.items)
	return out
}

// Find returns the auction with the given id from the current snapshot.
func (r *Auctions) Find(id uint64) (domain.Auction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.items {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Auction{}, false
}
