package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "daybook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Put(ctx, "a", []byte(`{"v":1}`)))
	require.NoError(t, s.Put(ctx, "a", []byte(`{"v":2}`)))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, `{"v":2}`, string(got))
}

func TestScanRange(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for _, k := range []string{"day-03", "day-01", "day-02", "other"} {
		require.NoError(t, s.Put(ctx, k, []byte(k)))
	}

	entries, err := s.Scan(ctx, "day-01", "day-02")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "day-01", entries[0].Key)
	require.Equal(t, "day-02", entries[1].Key)
	require.False(t, entries[0].UpdatedAt.IsZero())
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Put(ctx, "a", []byte("x")))
	require.NoError(t, s.Delete(ctx, "a"))
	_, err := s.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "daybook.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", string(got))
}
