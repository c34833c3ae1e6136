// Package contract names the marketplace module's functions and decodes
// its record encodings into domain types.
package contract

import (
	"fmt"

	"nft-market-client/internal/domain"
)

// Module function names, joined with the publisher address into fully
// qualified function ids.
const (
	moduleName = "marketplace"

	// View functions.
	FnGetAllAuctions   = "get_all_auctions"
	FnGetOwnedNFTIDs   = "get_owned_nft_ids"
	FnGetNFTDetails    = "get_nft_details"
	FnGetLastMintedNFT = "get_last_minted_nft"

	// Entry functions.
	FnListForSale   = "list_nft_for_sale"
	FnDelist        = "delist_nft"
	FnPurchase      = "purchase_nft"
	FnCreateAuction = "create_auction"
	FnPlaceBid      = "place_bid"
	FnFuse          = "fuse_nfts"
)

// Module locates a deployed marketplace module instance.
type Module struct {
	// Address is the account the module is published under; the full
	// marketplace state resource lives under the same address.
	Address domain.Address
}

// New creates a Module for the publisher address.
func New(address domain.Address) Module {
	return Module{Address: address}
}

// Function returns the fully qualified id of a module function.
func (m Module) Function(name string) string {
	return fmt.Sprintf("%s::%s::%s", m.Address, moduleName, name)
}

// ResourceType returns the type tag of the marketplace state resource.
func (m Module) ResourceType() string {
	return fmt.Sprintf("%s::%s::Marketplace", m.Address, moduleName)
}
