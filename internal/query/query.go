// Package query applies filter, sort and page parameters to a repository
// snapshot. It is pure: the same snapshot and parameters always produce
// the same result, and the input slice is never modified.
package query

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"nft-market-client/internal/domain"
)

// DefaultPageSize is the page size used when Params leaves it zero.
const DefaultPageSize = 8

// Sort is a total order over a snapshot. Ties are always broken by
// entity id ascending so pagination stays reproducible.
type Sort int

const (
	SortPriceAsc Sort = iota
	SortPriceDesc
	SortListedAsc
	SortListedDesc
	SortRarityAsc
	SortRarityDesc
)

// Filters are AND-composed predicates; nil/empty members match everything.
type Filters struct {
	Rarity     *domain.RarityTier // tier equality
	MinPrice   *decimal.Decimal   // inclusive
	MaxPrice   *decimal.Decimal   // inclusive
	ListedFrom *int64             // inclusive Unix seconds
	ListedTo   *int64             // inclusive Unix seconds
	Search     string             // case-insensitive substring over name and description
	ForSale    bool               // restrict to active listings
}

// Params selects and orders one page of a snapshot.
type Params struct {
	Filters  Filters
	Sort     Sort
	Page     int // 1-indexed; callers reset to 1 whenever filters or sort change
	PageSize int
}

// Result is one page plus the filtered total.
type Result struct {
	Items      []domain.NFT
	TotalCount int // filtered count, not the snapshot size
	Page       int
	PageCount  int
}

// Apply filters, sorts and pages a snapshot.
func Apply(snapshot []domain.NFT, p Params) Result {
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := p.Page
	if page < 1 {
		page = 1
	}

	filtered := make([]domain.NFT, 0, len(snapshot))
	for _, n := range snapshot {
		if p.Filters.matches(&n) {
			filtered = append(filtered, n)
		}
	}

	sort.SliceStable(filtered, less(filtered, p.Sort))

	total := len(filtered)
	pageCount := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Result{
		Items:      filtered[start:end],
		TotalCount: total,
		Page:       page,
		PageCount:  pageCount,
	}
}

func (f *Filters) matches(n *domain.NFT) bool {
	if f.ForSale && !n.ForSale {
		return false
	}
	if f.Rarity != nil && n.Rarity != *f.Rarity {
		return false
	}
	if f.MinPrice != nil && n.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && n.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.ListedFrom != nil && n.ListedAt < *f.ListedFrom {
		return false
	}
	if f.ListedTo != nil && n.ListedAt > *f.ListedTo {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(n.Name), needle) &&
			!strings.Contains(strings.ToLower(n.Description), needle) {
			return false
		}
	}
	return true
}

func less(items []domain.NFT, s Sort) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := &items[i], &items[j]
		switch s {
		case SortPriceAsc:
			if c := a.Price.Cmp(b.Price); c != 0 {
				return c < 0
			}
		case SortPriceDesc:
			if c := a.Price.Cmp(b.Price); c != 0 {
				return c > 0
			}
		case SortListedAsc:
			if a.ListedAt != b.ListedAt {
				return a.ListedAt < b.ListedAt
			}
		case SortListedDesc:
			if a.ListedAt != b.ListedAt {
				return a.ListedAt > b.ListedAt
			}
		case SortRarityAsc:
			if a.Rarity != b.Rarity {
				return a.Rarity < b.Rarity
			}
		case SortRarityDesc:
			if a.Rarity != b.Rarity {
				return a.Rarity > b.Rarity
			}
		}
		return a.ID < b.ID
	}
}

// AuctionPage pages an auction snapshot, keeping the repository's id
// order. Page is 1-indexed.
func AuctionPage(snapshot []domain.Auction, page, pageSize int) ([]domain.Auction, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(snapshot)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return snapshot[start:end], total
}
