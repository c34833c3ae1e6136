package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nft-market-client/internal/domain"
	"nft-market-client/internal/history"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := NewStore(context.Background(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(hash string, actor domain.Address, createdAt int64) *history.Record {
	return &history.Record{
		Hash:        hash,
		Kind:        "purchase_nft",
		Actor:       actor,
		SubjectID:   5,
		AmountMinor: 1_250_000_000,
		Status:      history.StatusConfirmed,
		VMStatus:    "Executed successfully",
		CreatedAt:   createdAt,
	}
}

func TestStore_InsertAndGetByHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := record("0xtx1", "0xa11ce", 1000)
	require.NoError(t, s.Insert(ctx, want))

	got, err := s.GetByHash(ctx, "0xtx1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_DuplicateHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, record("0xtx1", "0xa11ce", 1000)))
	err := s.Insert(ctx, record("0xtx1", "0xa11ce", 2000))
	assert.ErrorIs(t, err, history.ErrDuplicateTx)
}

func TestStore_GetByHashNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetByHash(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestStore_GetByActorNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, record("0xtx1", "0xa11ce", 1000)))
	require.NoError(t, s.Insert(ctx, record("0xtx2", "0xa11ce", 3000)))
	require.NoError(t, s.Insert(ctx, record("0xtx3", "0xb0b", 2000)))

	got, err := s.GetByActor(ctx, "0xa11ce")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0xtx2", got[0].Hash)
	assert.Equal(t, "0xtx1", got[1].Hash)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	first, err := NewStore(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Insert(ctx, record("0xtx1", "0xa11ce", 1000)))
	require.NoError(t, first.Close())

	second, err := NewStore(ctx, path, nil)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetByHash(ctx, "0xtx1")
	require.NoError(t, err)
	assert.Equal(t, "0xtx1", got.Hash)
}
