package domain

import "github.com/shopspring/decimal"

// Auction is a timed sale decoded from ledger state.
// Invariants maintained by the module: CurrentBid >= StartingPrice, the
// highest bidder only changes to a strictly higher bid, EndTime is fixed
// at creation. The client treats an auction as read-only once EndTime has
// passed.
type Auction struct {
	ID            uint64
	NFTID         uint64
	Seller        Address
	StartingPrice decimal.Decimal // major units
	CurrentBid    decimal.Decimal // major units
	HighestBidder Address
	EndTime       int64 // Unix timestamp (seconds)
}

// Ended reports whether the auction accepts no further bids at the given
// Unix timestamp.
func (a *Auction) Ended(now int64) bool {
	return now >= a.EndTime
}

// HasBids reports whether any bid has been placed.
func (a *Auction) HasBids() bool {
	return !a.HighestBidder.IsZero()
}

// Bid is an in-flight bid request. It is not persisted client-side; the
// ledger is authoritative on races between concurrent bidders.
type Bid struct {
	AuctionID uint64
	Bidder    Address
	Amount    decimal.Decimal // major units
}

// FusionRequest asks the module to burn two owned NFTs and mint a new one.
// Rarity and trait derivation happen on chain and are opaque to the client.
type FusionRequest struct {
	FirstID  uint64
	SecondID uint64
}
