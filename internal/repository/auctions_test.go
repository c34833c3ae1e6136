package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nft-market-client/internal/contract"
	"nft-market-client/internal/ledger/stub"
)

const auctionsData = `[
	{"id": "2", "nft_id": "9", "seller": "0x3", "starting_price": "50000000",
	 "current_bid": "50000000", "highest_bidder": "0x0", "end_time": "1800000500"},
	{"id": "1", "nft_id": "7", "seller": "0x1", "starting_price": "100000000",
	 "current_bid": "150000000", "highest_bidder": "0x2", "end_time": "1800000000"}
]`

func TestAuctions_Refresh(t *testing.T) {
	gw := stub.NewGateway()
	mod := testModule()
	gw.SetView(mod.Function(contract.FnGetAllAuctions), auctionsData)

	repo := NewAuctions(gw, mod, nil)
	require.NoError(t, repo.Refresh(context.Background()))

	items := repo.Snapshot()
	require.Len(t, items, 2)
	// Snapshot is ordered by auction id regardless of wire order.
	assert.Equal(t, uint64(1), items[0].ID)
	assert.Equal(t, uint64(2), items[1].ID)

	a, ok := repo.Find(2)
	require.True(t, ok)
	assert.Equal(t, uint64(9), a.NFTID)
}

func TestAuctions_RefreshCoalesces(t *testing.T) {
	gw := stub.NewGateway()
	mod := testModule()
	fn := mod.Function(contract.FnGetAllAuctions)
	gw.SetView(fn, auctionsData)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gw.ViewHook = func(string) {
		once.Do(func() { close(entered) })
		<-release
	}

	repo := NewAuctions(gw, mod, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = repo.Refresh(context.Background())
	}()

	<-entered

	go func() {
		defer wg.Done()
		_ = repo.Refresh(context.Background())
	}()

	// Give the second call time to join the in-flight refresh.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, gw.ViewCalls[fn], "concurrent refreshes must share one read")
	assert.Len(t, repo.Snapshot(), 2)
}
