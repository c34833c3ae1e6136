package contract

import (
	"encoding/json"
	"fmt"
	"strconv"

	"nft-market-client/internal/codec"
	"nft-market-client/internal/domain"
)

// The node renders u64 as JSON strings and vector<u8> as 0x-hex strings.
// Structural fields (ids, owner, price, rarity) failing to decode drop the
// record; text fields failing to decode are blanked and the record kept.

// rawNFT is an NFT record as stored in the marketplace resource.
type rawNFT struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URI         string `json:"uri"`
	Rarity      string `json:"rarity"`
	Price       string `json:"price"`
	ForSale     bool   `json:"for_sale"`
	ListedAt    string `json:"listed_at"`
}

// marketplaceResource is the data field of the Marketplace state resource.
type marketplaceResource struct {
	NFTs []json.RawMessage `json:"nfts"`
}

// rawAuction is an auction record returned by get_all_auctions.
type rawAuction struct {
	ID            string `json:"id"`
	NFTID         string `json:"nft_id"`
	Seller        string `json:"seller"`
	StartingPrice string `json:"starting_price"`
	CurrentBid    string `json:"current_bid"`
	HighestBidder string `json:"highest_bidder"`
	EndTime       string `json:"end_time"`
}

// FormatU64 renders a u64 argument in the node's decimal-string encoding.
func FormatU64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// DecodeU64 decodes a string-rendered u64 view value.
func DecodeU64(raw json.RawMessage) (uint64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, &codec.DecodeError{What: "u64", Err: err}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &codec.DecodeError{What: "u64", Err: err}
	}
	return v, nil
}

// DecodeU64List decodes a view value holding a vector<u64>.
func DecodeU64List(raw json.RawMessage) ([]uint64, error) {
	var strs []string
	if err := json.Unmarshal(raw, &strs); err != nil {
		return nil, &codec.DecodeError{What: "u64 list", Err: err}
	}
	ids := make([]uint64, len(strs))
	for i, s := range strs {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, &codec.DecodeError{What: "u64 list", Err: err}
		}
		ids[i] = v
	}
	return ids, nil
}

// DecodeNFTRecord decodes one NFT record from the marketplace resource.
func DecodeNFTRecord(raw json.RawMessage) (domain.NFT, error) {
	var r rawNFT
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.NFT{}, &codec.DecodeError{What: "nft record", Err: err}
	}
	return decodeNFTFields(r)
}

// MarketplaceNFTs decodes the NFT records held in the marketplace state
// resource data blob, returning the raw records for per-record decoding.
func MarketplaceNFTs(data json.RawMessage) ([]json.RawMessage, error) {
	var res marketplaceResource
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, &codec.DecodeError{What: "marketplace resource", Err: err}
	}
	return res.NFTs, nil
}

// NFTDetailFieldCount is the documented arity of get_nft_details.
// Field order: id, owner, name, description, uri, rarity, price,
// for_sale, listed_at.
const NFTDetailFieldCount = 9

// DecodeNFTView decodes the positional return of get_nft_details.
func DecodeNFTView(values []json.RawMessage) (domain.NFT, error) {
	if len(values) != NFTDetailFieldCount {
		return domain.NFT{}, &codec.DecodeError{
			What: "nft details",
			Err:  fmt.Errorf("expected %d values, got %d", NFTDetailFieldCount, len(values)),
		}
	}

	var r rawNFT
	fields := []struct {
		dst interface{}
		raw json.RawMessage
	}{
		{&r.ID, values[0]},
		{&r.Owner, values[1]},
		{&r.Name, values[2]},
		{&r.Description, values[3]},
		{&r.URI, values[4]},
		{&r.Rarity, values[5]},
		{&r.Price, values[6]},
		{&r.ForSale, values[7]},
		{&r.ListedAt, values[8]},
	}
	for i, f := range fields {
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return domain.NFT{}, &codec.DecodeError{
				What: "nft details",
				Err:  fmt.Errorf("field %d: %w", i, err),
			}
		}
	}
	return decodeNFTFields(r)
}

func decodeNFTFields(r rawNFT) (domain.NFT, error) {
	id, err := strconv.ParseUint(r.ID, 10, 64)
	if err != nil {
		return domain.NFT{}, &codec.DecodeError{What: "nft id", Err: err}
	}
	owner, err := domain.NormalizeAddress(r.Owner)
	if err != nil {
		return domain.NFT{}, &codec.DecodeError{What: "nft owner", Err: err}
	}
	rarity, err := strconv.Atoi(r.Rarity)
	if err != nil || !domain.RarityTier(rarity).Valid() {
		return domain.NFT{}, &codec.DecodeError{What: "nft rarity", Err: fmt.Errorf("tier %q", r.Rarity)}
	}
	price, err := codec.ParseMinorUnits(r.Price)
	if err != nil {
		return domain.NFT{}, &codec.DecodeError{What: "nft price", Err: err}
	}

	nft := domain.NFT{
		ID:      id,
		Owner:   owner,
		Rarity:  domain.RarityTier(rarity),
		Price:   price,
		ForSale: r.ForSale,
	}

	if r.ListedAt != "" {
		// listed_at is advisory; a malformed value leaves the zero stamp.
		if ts, err := strconv.ParseInt(r.ListedAt, 10, 64); err == nil {
			nft.ListedAt = ts
		}
	}

	// Text fields are best-effort: a malformed encoding blanks the field
	// rather than dropping the record.
	if s, err := codec.DecodeHexText(r.Name); err == nil {
		nft.Name = s
	}
	if s, err := codec.DecodeHexText(r.Description); err == nil {
		nft.Description = s
	}
	if s, err := codec.DecodeHexText(r.URI); err == nil {
		nft.MediaURI = s
	}

	return nft, nil
}

// DecodeAuctions decodes the positional return of get_all_auctions, whose
// single value is the auction list.
func DecodeAuctions(values []json.RawMessage) ([]domain.Auction, error) {
	if len(values) != 1 {
		return nil, &codec.DecodeError{
			What: "auction list",
			Err:  fmt.Errorf("expected 1 value, got %d", len(values)),
		}
	}

	var raws []rawAuction
	if err := json.Unmarshal(values[0], &raws); err != nil {
		return nil, &codec.DecodeError{What: "auction list", Err: err}
	}

	auctions := make([]domain.Auction, 0, len(raws))
	for _, r := range raws {
		a, err := decodeAuctionFields(r)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, nil
}

func decodeAuctionFields(r rawAuction) (domain.Auction, error) {
	id, err := strconv.ParseUint(r.ID, 10, 64)
	if err != nil {
		return domain.Auction{}, &codec.DecodeError{What: "auction id", Err: err}
	}
	nftID, err := strconv.ParseUint(r.NFTID, 10, 64)
	if err != nil {
		return domain.Auction{}, &codec.DecodeError{What: "auction nft id", Err: err}
	}
	seller, err := domain.NormalizeAddress(r.Seller)
	if err != nil {
		return domain.Auction{}, &codec.DecodeError{What: "auction seller", Err: err}
	}
	starting, err := codec.ParseMinorUnits(r.StartingPrice)
	if err != nil {
		return domain.Auction{}, &codec.DecodeError{What: "auction starting price", Err: err}
	}
	current, err := codec.ParseMinorUnits(r.CurrentBid)
	if err != nil {
		return domain.Auction{}, &codec.DecodeError{What: "auction current bid", Err: err}
	}
	endTime, err := strconv.ParseInt(r.EndTime, 10, 64)
	if err != nil {
		return domain.Auction{}, &codec.DecodeError{What: "auction end time", Err: err}
	}

	a := domain.Auction{
		ID:            id,
		NFTID:         nftID,
		Seller:        seller,
		StartingPrice: starting,
		CurrentBid:    current,
		EndTime:       endTime,
	}

	// The module stores the zero address until a first bid lands.
	if bidder, err := domain.NormalizeAddress(r.HighestBidder); err == nil {
		a.HighestBidder = bidder
	} else {
		a.HighestBidder = domain.ZeroAddress
	}

	return a, nil
}
