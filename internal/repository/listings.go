// Package repository maintains typed, locally cached snapshots of ledger
// state. Each repository fetches raw records through the ledger gateway,
// decodes them, and atomically replaces its snapshot; a failed refresh
// keeps the previous snapshot (stale data is preferred over no data).
// Concurrent refreshes of the same repository coalesce into one read.
package repository

import (
	"context"
	"log"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"nft-market-client/internal/contract"
	"nft-market-client/internal/domain"
	"nft-market-client/internal/ledger"
	"nft-market-client/internal/observability"
)

func defaultLogger() *log.Logger {
	return log.New(os.Stderr, "[repository] ", log.LstdFlags)
}

// Listings holds all NFT records of the marketplace. Items with ForSale
// set are the active listings; the query engine projects those out.
type Listings struct {
	gateway ledger.Gateway
	mod     contract.Module
	logger  *log.Logger

	sf    singleflight.Group
	mu    sync.RWMutex
	items []domain.NFT
}

// NewListings creates a listings repository. A nil logger falls back to
// a default stderr logger.
func NewListings(gateway ledger.Gateway, mod contract.Module, logger *log.Logger) *Listings {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Listings{gateway: gateway, mod: mod, logger: logger}
}

// Refresh fetches the marketplace state resource and replaces the
// snapshot. Calls issued while a refresh is outstanding share its result
// instead of issuing a duplicate read.
func (r *Listings) Refresh(ctx context.Context) error {
	_, err, _ := r.sf.Do("refresh", func() (interface{}, error) {
		done := observability.TimeRefresh("listings")
		items, err := r.fetch(ctx)
		done(err)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.items = items
		r.mu.Unlock()
		observability.SetSnapshotSize("listings", len(items))
		return nil, nil
	})
	return err
}

func (r *Listings) fetch(ctx context.Context) ([]domain.NFT, error) {
	data, err := r.gateway.AccountResource(ctx, string(r.mod.Address), r.mod.ResourceType())
	if err != nil {
		return nil, err
	}

	raws, err := contract.MarketplaceNFTs(data)
	if err != nil {
		return nil, err
	}

	items := make([]domain.NFT, 0, len(raws))
	for i, raw := range raws {
		nft, err := contract.DecodeNFTRecord(raw)
		if err != nil {
			// Best-effort: a structurally broken record is dropped, the
			// rest of the snapshot still lands.
			r.logger.Printf("listings: dropping record %d: %v", i, err)
			observability.RecordDroppedRecord("listings")
			continue
		}
		items = append(items, nft)
	}
	return items, nil
}

// Find returns the NFT with the given id from the current snapshot.
func (r *Listings) Find(id uint64) (domain.NFT, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.items {
		if n.ID == id {
			return n, true
		}
	}
	return domain.NFT{}, false
}

// Snapshot returns the last successfully fetched NFT set. It never blocks
// on network I/O.
func (r *Listings) Snapshot() []domain.NFT {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.NFT, len(r.items))
	copy(out, r.items)
	return out
}
