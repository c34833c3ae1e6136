package domain

import "github.com/shopspring/decimal"

// RarityTier is the on-chain rarity classification of an NFT.
type RarityTier int

// Rarity tiers as stored by the marketplace module.
const (
	RarityCommon    RarityTier = 1
	RarityUncommon  RarityTier = 2
	RarityRare      RarityTier = 3
	RarityLegendary RarityTier = 4
)

// Valid reports whether the tier is one the module can produce.
func (r RarityTier) Valid() bool {
	return r >= RarityCommon && r <= RarityLegendary
}

// Label returns a human-readable tier name.
func (r RarityTier) Label() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityUncommon:
		return "uncommon"
	case RarityRare:
		return "rare"
	case RarityLegendary:
		return "legendary"
	default:
		return "unknown"
	}
}

// NFT is a marketplace token decoded from ledger state.
// Identity is ID, unique per marketplace instance. Fields change only
// through confirmed ledger transactions followed by a refresh; the client
// never mutates an NFT optimistically.
type NFT struct {
	ID          uint64
	Owner       Address
	Name        string
	Description string
	MediaURI    string
	Rarity      RarityTier
	Price       decimal.Decimal // major units
	ForSale     bool
	ListedAt    int64 // Unix timestamp (seconds), 0 if never listed
}

// Listing is a projection over NFTs with ForSale set; there is no separate
// listing entity on chain, so none is modeled here.
