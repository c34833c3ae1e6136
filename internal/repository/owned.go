package repository

import (
	"context"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"nft-market-client/internal/contract"
	"nft-market-client/internal/domain"
	"nft-market-client/internal/ledger"
	"nft-market-client/internal/observability"
)

// DefaultDetailConcurrency bounds the per-id detail fetch fan-out.
const DefaultDetailConcurrency = 8

// Owned holds the NFTs owned by one address. The scope is the owner:
// one repository instance per watched address.
type Owned struct {
	gateway     ledger.Gateway
	mod         contract.Module
	owner       domain.Address
	logger      *log.Logger
	concurrency int

	sf    singleflight.Group
	mu    sync.RWMutex
	items []domain.NFT
}

// NewOwned creates a repository scoped to the NFTs owned by owner.
func NewOwned(gateway ledger.Gateway, mod contract.Module, owner domain.Address, logger *log.Logger) *Owned {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Owned{
		gateway:     gateway,
		mod:         mod,
		owner:       owner,
		logger:      logger,
		concurrency: DefaultDetailConcurrency,
	}
}

// Owner returns the address this repository is scoped to.
func (r *Owned) Owner() domain.Address { return r.owner }

// Refresh fetches the owned id list, then fans out per-id detail reads.
// A failed id fetch is logged and the id dropped; the collection is
// best-effort complete, not all-or-nothing. Concurrent calls coalesce.
func (r *Owned) Refresh(ctx context.Context) error {
	_, err, _ := r.sf.Do("refresh", func() (interface{}, error) {
		done := observability.TimeRefresh("owned")
		items, err := r.fetch(ctx)
		done(err)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.items = items
		r.mu.Unlock()
		observability.SetSnapshotSize("owned", len(items))
		return nil, nil
	})
	return err
}

func (r *Owned) fetch(ctx context.Context) ([]domain.NFT, error) {
	values, err := r.gateway.View(ctx, r.mod.Function(contract.FnGetOwnedNFTIDs), nil, []string{string(r.owner)})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	ids, err := contract.DecodeU64List(values[0])
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	items := make([]domain.NFT, 0, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			nft, err := r.fetchDetail(gctx, id)
			if err != nil {
				// Per-id failures do not fail the batch.
				r.logger.Printf("owned %s: dropping nft %d: %v", r.owner.Short(), id, err)
				observability.RecordDroppedRecord("owned")
				return nil
			}
			mu.Lock()
			items = append(items, nft)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *Owned) fetchDetail(ctx context.Context, id uint64) (domain.NFT, error) {
	values, err := r.gateway.View(ctx, r.mod.Function(contract.FnGetNFTDetails), nil,
		[]string{contract.FormatU64(id)})
	if err != nil {
		return domain.NFT{}, err
	}
	return contract.DecodeNFTView(values)
}

// Snapshot returns the last successfully fetched owned set, ordered by id.
func (r *Owned) Snapshot() []domain.NFT {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.NFT, len(r.items))
	copy(out, r.items)
	return out
}

// Owns reports whether the current snapshot contains the id.
func (r *Owned) Owns(id uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.items {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Get returns the owned NFT with the given id from the current snapshot.
func (r *Owned) Get(id uint64) (domain.NFT, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.items {
		if n.ID == id {
			return n, true
		}
	}
	return domain.NFT{}, false
}
