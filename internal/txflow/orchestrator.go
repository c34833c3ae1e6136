// Package txflow drives the write path against the marketplace module:
// validate locally, delegate signing to the wallet agent, await finality,
// then refresh every repository scope the operation could have changed.
package txflow

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"nft-market-client/internal/codec"
	"nft-market-client/internal/contract"
	"nft-market-client/internal/domain"
	"nft-market-client/internal/history"
	"nft-market-client/internal/ledger"
	"nft-market-client/internal/observability"
	"nft-market-client/internal/wallet"
)

// Refresher refreshes one repository scope.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// OwnedView is the actor's owned-NFT snapshot used for validation.
type OwnedView interface {
	Refresher
	Get(id uint64) (domain.NFT, bool)
	Owns(id uint64) bool
}

// AuctionView is the auction snapshot used for validation.
type AuctionView interface {
	Refresher
	Find(id uint64) (domain.Auction, bool)
	Snapshot() []domain.Auction
}

// ListingView is the marketplace snapshot used for validation.
type ListingView interface {
	Refresher
	Find(id uint64) (domain.NFT, bool)
}

// Options for creating an Orchestrator.
type Options struct {
	Agent   wallet.Agent
	Gateway ledger.Gateway
	Module  contract.Module
	Actor   domain.Address

	Listings ListingView
	Auctions AuctionView
	Owned    OwnedView

	// ExtraOwned holds owned-NFT scopes for other watched addresses
	// (e.g. a seller view); a purchase invalidates the seller's scope
	// too when it is observed.
	ExtraOwned map[domain.Address]Refresher

	// History, when set, records every submitted transaction outcome.
	History history.Store

	Logger *log.Logger

	// Now is a clock override for tests.
	Now func() time.Time
}

// Orchestrator runs one user-initiated write operation at a time as an
// explicit state machine: Idle → Building → AwaitingSignature →
// Submitted → AwaitingFinality → Confirmed | Failed.
type Orchestrator struct {
	agent      wallet.Agent
	gateway    ledger.Gateway
	mod        contract.Module
	actor      domain.Address
	listings   ListingView
	auctions   AuctionView
	owned      OwnedView
	extraOwned map[domain.Address]Refresher
	historyDB  history.Store
	logger     *log.Logger
	now        func() time.Time

	mu    sync.Mutex
	state State
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[txflow] ", log.LstdFlags)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		agent:      opts.Agent,
		gateway:    opts.Gateway,
		mod:        opts.Module,
		actor:      opts.Actor,
		listings:   opts.Listings,
		auctions:   opts.Auctions,
		owned:      opts.Owned,
		extraOwned: opts.ExtraOwned,
		historyDB:  opts.History,
		logger:     logger,
		now:        now,
		state:      StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Receipt reports a confirmed operation.
type Receipt struct {
	Kind    string
	Hash    string
	Version uint64

	// NewNFTID is the freshly minted token after a fusion, 0 otherwise.
	NewNFTID uint64
}

// intent is one fully built write operation.
type intent struct {
	kind        string
	payload     *wallet.EntryFunctionPayload
	subjectID   uint64
	amountMinor uint64
	validate    func() error
	affected    []Refresher
}

// run executes the state machine for one intent. Exactly one intent may
// be in flight; a second call before Confirmed/Failed returns ErrFlowBusy.
func (o *Orchestrator) run(ctx context.Context, in intent) (*Receipt, error) {
	o.mu.Lock()
	if !o.state.terminal() {
		o.mu.Unlock()
		return nil, ErrFlowBusy
	}
	o.state = StateBuilding
	o.mu.Unlock()

	start := time.Now()

	// Local preconditions first; an intent known to be invalid never
	// touches the network.
	if err := in.validate(); err != nil {
		o.setState(StateFailed)
		observability.RecordTransaction(in.kind, "validation_error", time.Since(start).Seconds())
		return nil, err
	}

	o.setState(StateAwaitingSignature)
	handle, err := o.agent.SignAndSubmit(ctx, in.payload)
	if err != nil {
		o.setState(StateFailed)
		outcome := "agent_error"
		if errors.Is(err, wallet.ErrUserRejected) {
			outcome = "user_rejected"
		}
		observability.RecordTransaction(in.kind, outcome, time.Since(start).Seconds())
		return nil, err
	}

	o.setState(StateSubmitted)
	o.logger.Printf("%s submitted as %s", in.kind, handle.Hash)

	o.setState(StateAwaitingFinality)
	result, err := o.gateway.WaitForTransaction(ctx, handle.Hash)
	if err != nil {
		// Finality unknown: the transaction may still land, so refresh
		// rather than trusting the stale snapshot.
		o.refreshAffected(ctx, in)
		o.setState(StateFailed)
		observability.RecordTransaction(in.kind, "finality_unknown", time.Since(start).Seconds())
		return nil, err
	}

	if !result.Success {
		o.record(ctx, in, handle.Hash, history.StatusFailed, result.VMStatus)
		// Ledger state may have moved concurrently (e.g. a rival bid
		// won); refresh anyway.
		o.refreshAffected(ctx, in)
		o.setState(StateFailed)
		observability.RecordTransaction(in.kind, "chain_rejected", time.Since(start).Seconds())
		return nil, &ChainRejectedError{Hash: handle.Hash, VMStatus: result.VMStatus}
	}

	o.record(ctx, in, handle.Hash, history.StatusConfirmed, result.VMStatus)
	o.refreshAffected(ctx, in)
	o.setState(StateConfirmed)
	observability.RecordTransaction(in.kind, "confirmed", time.Since(start).Seconds())

	return &Receipt{Kind: in.kind, Hash: handle.Hash, Version: result.Version}, nil
}

// refreshAffected reloads every scope the operation could have changed.
// Refresh failures are logged, not surfaced: the transaction outcome is
// already decided and the next poll retries.
func (o *Orchestrator) refreshAffected(ctx context.Context, in intent) {
	for _, r := range in.affected {
		if r == nil {
			continue
		}
		if err := r.Refresh(ctx); err != nil {
			o.logger.Printf("%s: post-transaction refresh failed: %v", in.kind, err)
		}
	}
}

func (o *Orchestrator) record(ctx context.Context, in intent, hash, status, vmStatus string) {
	if o.historyDB == nil {
		return
	}
	rec := &history.Record{
		Hash:        hash,
		Kind:        in.kind,
		Actor:       o.actor,
		SubjectID:   in.subjectID,
		AmountMinor: in.amountMinor,
		Status:      status,
		VMStatus:    vmStatus,
		CreatedAt:   o.now().UnixMilli(),
	}
	if err := o.historyDB.Insert(ctx, rec); err != nil && !errors.Is(err, history.ErrDuplicateTx) {
		o.logger.Printf("%s: record history: %v", in.kind, err)
	}
}

func (o *Orchestrator) ownedScopeFor(addr domain.Address) Refresher {
	if addr == o.actor {
		return o.owned
	}
	if r, ok := o.extraOwned[addr]; ok {
		return r
	}
	return nil
}

// ListForSale lists an owned NFT at the given price.
func (o *Orchestrator) ListForSale(ctx context.Context, nftID uint64, price decimal.Decimal) (*Receipt, error) {
	priceMinor, err := codec.ToMinorUnits(price)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	return o.run(ctx, intent{
		kind:        contract.FnListForSale,
		subjectID:   nftID,
		amountMinor: priceMinor,
		payload: wallet.NewEntryFunctionPayload(
			o.mod.Function(contract.FnListForSale),
			contract.FormatU64(nftID),
			contract.FormatU64(priceMinor),
		),
		validate: func() error {
			nft, ok := o.owned.Get(nftID)
			if !ok {
				return &ValidationError{Reason: "nft not owned by seller"}
			}
			if nft.ForSale {
				return &ValidationError{Reason: "nft already listed for sale"}
			}
			if !price.IsPositive() {
				return &ValidationError{Reason: "price must be positive"}
			}
			return nil
		},
		affected: []Refresher{o.listings, o.owned},
	})
}

// Delist removes an owned NFT from sale.
func (o *Orchestrator) Delist(ctx context.Context, nftID uint64) (*Receipt, error) {
	return o.run(ctx, intent{
		kind:      contract.FnDelist,
		subjectID: nftID,
		payload: wallet.NewEntryFunctionPayload(
			o.mod.Function(contract.FnDelist),
			contract.FormatU64(nftID),
		),
		validate: func() error {
			nft, ok := o.owned.Get(nftID)
			if !ok {
				return &ValidationError{Reason: "nft not owned by seller"}
			}
			if !nft.ForSale {
				return &ValidationError{Reason: "nft is not listed"}
			}
			return nil
		},
		affected: []Refresher{o.listings, o.owned},
	})
}

// Purchase buys a listed NFT at its asking price.
func (o *Orchestrator) Purchase(ctx context.Context, nftID uint64) (*Receipt, error) {
	var amountMinor uint64
	var seller domain.Address

	nft, found := o.listings.Find(nftID)
	if found {
		seller = nft.Owner
		if minor, err := codec.ToMinorUnits(nft.Price); err == nil {
			amountMinor = minor
		}
	}

	return o.run(ctx, intent{
		kind:        contract.FnPurchase,
		subjectID:   nftID,
		amountMinor: amountMinor,
		payload: wallet.NewEntryFunctionPayload(
			o.mod.Function(contract.FnPurchase),
			contract.FormatU64(nftID),
		),
		validate: func() error {
			if !found {
				return &ValidationError{Reason: "unknown nft"}
			}
			if !nft.ForSale {
				return &ValidationError{Reason: "nft is not for sale"}
			}
			if nft.Owner == o.actor {
				return &ValidationError{Reason: "cannot purchase own nft"}
			}
			return nil
		},
		affected: []Refresher{o.listings, o.owned, o.ownedScopeFor(seller)},
	})
}

// CreateAuction starts a timed auction for an owned NFT.
func (o *Orchestrator) CreateAuction(ctx context.Context, nftID uint64, startingPrice decimal.Decimal, endTime int64) (*Receipt, error) {
	startMinor, err := codec.ToMinorUnits(startingPrice)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	return o.run(ctx, intent{
		kind:        contract.FnCreateAuction,
		subjectID:   nftID,
		amountMinor: startMinor,
		payload: wallet.NewEntryFunctionPayload(
			o.mod.Function(contract.FnCreateAuction),
			contract.FormatU64(nftID),
			contract.FormatU64(startMinor),
			contract.FormatU64(uint64(endTime)),
		),
		validate: func() error {
			nft, ok := o.owned.Get(nftID)
			if !ok {
				return &ValidationError{Reason: "nft not owned by seller"}
			}
			if nft.ForSale {
				return &ValidationError{Reason: "nft is listed for sale; delist before auctioning"}
			}
			if !startingPrice.IsPositive() {
				return &ValidationError{Reason: "starting price must be positive"}
			}
			if endTime <= o.now().Unix() {
				return &ValidationError{Reason: "auction end time must be in the future"}
			}
			if o.activeAuctionFor(nftID) != nil {
				return &ValidationError{Reason: "nft already has an active auction"}
			}
			return nil
		},
		affected: []Refresher{o.auctions, o.owned},
	})
}

// PlaceBid bids on an active auction.
func (o *Orchestrator) PlaceBid(ctx context.Context, auctionID uint64, amount decimal.Decimal) (*Receipt, error) {
	amountMinor, err := codec.ToMinorUnits(amount)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	return o.run(ctx, intent{
		kind:        contract.FnPlaceBid,
		subjectID:   auctionID,
		amountMinor: amountMinor,
		payload: wallet.NewEntryFunctionPayload(
			o.mod.Function(contract.FnPlaceBid),
			contract.FormatU64(auctionID),
			contract.FormatU64(amountMinor),
		),
		validate: func() error {
			auction, ok := o.auctions.Find(auctionID)
			if !ok {
				return &ValidationError{Reason: "unknown auction"}
			}
			if auction.Ended(o.now().Unix()) {
				return &ValidationError{Reason: "auction has ended"}
			}
			if auction.Seller == o.actor {
				return &ValidationError{Reason: "seller cannot bid on own auction"}
			}
			if amount.Cmp(auction.CurrentBid) <= 0 {
				return &ValidationError{Reason: "bid must be strictly greater than current bid"}
			}
			return nil
		},
		affected: []Refresher{o.auctions},
	})
}

// Fuse burns two owned NFTs and mints a new one. On success the receipt
// carries the new token id reported by the module.
func (o *Orchestrator) Fuse(ctx context.Context, req domain.FusionRequest) (*Receipt, error) {
	receipt, err := o.run(ctx, intent{
		kind:      contract.FnFuse,
		subjectID: req.FirstID,
		payload: wallet.NewEntryFunctionPayload(
			o.mod.Function(contract.FnFuse),
			contract.FormatU64(req.FirstID),
			contract.FormatU64(req.SecondID),
		),
		validate: func() error {
			if req.FirstID == req.SecondID {
				return &ValidationError{Reason: "inputs must be distinct"}
			}
			for _, id := range []uint64{req.FirstID, req.SecondID} {
				nft, ok := o.owned.Get(id)
				if !ok {
					return &ValidationError{Reason: "fusion input not owned by requester"}
				}
				if nft.ForSale {
					return &ValidationError{Reason: "fusion input is listed for sale"}
				}
				if o.activeAuctionFor(id) != nil {
					return &ValidationError{Reason: "fusion input has an active auction"}
				}
			}
			return nil
		},
		affected: []Refresher{o.owned, o.listings},
	})
	if err != nil {
		return nil, err
	}

	// Rarity derivation is ledger-side; the post-fusion mint id comes
	// from the module.
	values, err := o.gateway.View(ctx, o.mod.Function(contract.FnGetLastMintedNFT), nil,
		[]string{string(o.actor)})
	if err == nil && len(values) == 1 {
		if id, derr := contract.DecodeU64(values[0]); derr == nil {
			receipt.NewNFTID = id
		}
	} else if err != nil {
		o.logger.Printf("fuse: fetch last minted nft: %v", err)
	}

	return receipt, nil
}

// activeAuctionFor returns the live auction holding the NFT, if any.
func (o *Orchestrator) activeAuctionFor(nftID uint64) *domain.Auction {
	now := o.now().Unix()
	for _, a := range o.auctions.Snapshot() {
		if a.NFTID == nftID && !a.Ended(now) {
			return &a
		}
	}
	return nil
}
