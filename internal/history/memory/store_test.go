package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nft-market-client/internal/history"
)

func TestStore_InsertAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	want := &history.Record{Hash: "0xtx1", Kind: "place_bid", Actor: "0xa11ce", CreatedAt: 100}
	require.NoError(t, s.Insert(ctx, want))

	got, err := s.GetByHash(ctx, "0xtx1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The store holds its own copy.
	got.Status = "mutated"
	again, err := s.GetByHash(ctx, "0xtx1")
	require.NoError(t, err)
	assert.Empty(t, again.Status)
}

func TestStore_Duplicate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &history.Record{Hash: "0xtx1"}))
	assert.ErrorIs(t, s.Insert(ctx, &history.Record{Hash: "0xtx1"}), history.ErrDuplicateTx)
}

func TestStore_NotFound(t *testing.T) {
	s := NewStore()
	_, err := s.GetByHash(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestStore_GetByActorNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &history.Record{Hash: "0xtx1", Actor: "0xa11ce", CreatedAt: 100}))
	require.NoError(t, s.Insert(ctx, &history.Record{Hash: "0xtx2", Actor: "0xa11ce", CreatedAt: 300}))
	require.NoError(t, s.Insert(ctx, &history.Record{Hash: "0xtx3", Actor: "0xb0b", CreatedAt: 200}))

	got, err := s.GetByActor(ctx, "0xa11ce")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0xtx2", got[0].Hash)
	assert.Equal(t, "0xtx1", got[1].Hash)
}
