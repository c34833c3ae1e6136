package query

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"nft-market-client/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testSnapshot() []domain.NFT {
	return []domain.NFT{
		{ID: 1, Name: "Space Fox", Description: "a fox", Rarity: 2, Price: dec("5"), ForSale: true, ListedAt: 300},
		{ID: 2, Name: "Night Crow", Description: "a crow", Rarity: 1, Price: dec("3"), ForSale: true, ListedAt: 100},
		{ID: 3, Name: "Sun Owl", Description: "an owl", Rarity: 4, Price: dec("3"), ForSale: true, ListedAt: 200},
		{ID: 4, Name: "River Fox", Description: "another FOX", Rarity: 2, Price: dec("9"), ForSale: false, ListedAt: 0},
	}
}

func TestApply_RarityFilter(t *testing.T) {
	rarity := domain.RarityTier(1)
	res := Apply(testSnapshot(), Params{
		Filters: Filters{Rarity: &rarity},
		Sort:    SortPriceAsc,
		Page:    1,
	})

	if res.TotalCount != 1 {
		t.Fatalf("expected totalCount 1, got %d", res.TotalCount)
	}
	if len(res.Items) != 1 || res.Items[0].ID != 2 {
		t.Errorf("expected item id 2, got %v", res.Items)
	}
}

func TestApply_PriceTieBrokenByID(t *testing.T) {
	res := Apply(testSnapshot(), Params{Sort: SortPriceAsc, Page: 1})

	var ids []uint64
	for _, n := range res.Items {
		ids = append(ids, n.ID)
	}
	// Price 3 ties between ids 2 and 3; id ascending breaks the tie.
	want := []uint64{2, 3, 1, 4}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected order %v, got %v", want, ids)
	}
}

func TestApply_PriceRangeInclusive(t *testing.T) {
	lo, hi := dec("3"), dec("5")
	res := Apply(testSnapshot(), Params{
		Filters: Filters{MinPrice: &lo, MaxPrice: &hi},
		Page:    1,
	})
	if res.TotalCount != 3 {
		t.Errorf("expected 3 items in [3,5], got %d", res.TotalCount)
	}
}

func TestApply_ListedRangeInclusive(t *testing.T) {
	from, to := int64(100), int64(200)
	res := Apply(testSnapshot(), Params{
		Filters: Filters{ListedFrom: &from, ListedTo: &to},
		Page:    1,
	})
	if res.TotalCount != 2 {
		t.Errorf("expected 2 items listed in [100,200], got %d", res.TotalCount)
	}
}

func TestApply_SearchCaseInsensitive(t *testing.T) {
	res := Apply(testSnapshot(), Params{
		Filters: Filters{Search: "fox"},
		Sort:    SortPriceAsc,
		Page:    1,
	})
	// Matches name "Space Fox", "River Fox" and description "another FOX".
	if res.TotalCount != 2 {
		t.Errorf("expected 2 matches, got %d", res.TotalCount)
	}
}

func TestApply_ForSaleProjection(t *testing.T) {
	res := Apply(testSnapshot(), Params{
		Filters: Filters{ForSale: true},
		Page:    1,
	})
	if res.TotalCount != 3 {
		t.Errorf("expected 3 listings, got %d", res.TotalCount)
	}
}

func TestApply_Idempotent(t *testing.T) {
	snapshot := testSnapshot()
	p := Params{Filters: Filters{Search: "o"}, Sort: SortRarityDesc, Page: 1, PageSize: 2}

	first := Apply(snapshot, p)
	second := Apply(snapshot, p)
	if !reflect.DeepEqual(first, second) {
		t.Error("same parameters over an unchanged snapshot must yield identical output")
	}
}

func TestApply_PaginationTotality(t *testing.T) {
	snapshot := testSnapshot()
	p := Params{Sort: SortListedDesc, PageSize: 3}

	seen := make(map[uint64]bool)
	var count int
	for page := 1; ; page++ {
		p.Page = page
		res := Apply(snapshot, p)
		if len(res.Items) == 0 {
			break
		}
		for _, n := range res.Items {
			if seen[n.ID] {
				t.Fatalf("id %d appeared on more than one page", n.ID)
			}
			seen[n.ID] = true
			count++
		}
	}
	if count != len(snapshot) {
		t.Errorf("pages covered %d of %d items", count, len(snapshot))
	}
}

func TestApply_OutOfRangePage(t *testing.T) {
	res := Apply(testSnapshot(), Params{Page: 99})
	if len(res.Items) != 0 {
		t.Errorf("expected empty page, got %d items", len(res.Items))
	}
	if res.TotalCount != 4 {
		t.Errorf("expected totalCount 4, got %d", res.TotalCount)
	}
}

func TestApply_RarityFilterWithPriceSort(t *testing.T) {
	snapshot := []domain.NFT{
		{ID: 1, Rarity: 2, Price: dec("5")},
		{ID: 2, Rarity: 1, Price: dec("3")},
	}
	rarity := domain.RarityTier(1)
	res := Apply(snapshot, Params{
		Filters:  Filters{Rarity: &rarity},
		Sort:     SortPriceAsc,
		Page:     1,
		PageSize: 8,
	})

	if res.TotalCount != 1 {
		t.Fatalf("expected totalCount 1, got %d", res.TotalCount)
	}
	if len(res.Items) != 1 || res.Items[0].ID != 2 {
		t.Errorf("expected page [id 2], got %v", res.Items)
	}
}

func TestAuctionPage(t *testing.T) {
	auctions := []domain.Auction{{ID: 1}, {ID: 2}, {ID: 3}}
	items, total := AuctionPage(auctions, 2, 2)
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(items) != 1 || items[0].ID != 3 {
		t.Errorf("expected page [id 3], got %v", items)
	}
}
