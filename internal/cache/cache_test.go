package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/searchd/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Config{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testEntry(n int) *Entry {
	results := make([]models.ChunkResult, n)
	for i := range results {
		results[i] = models.ChunkResult{
			ID:         uuid.New(),
			DocumentID: uuid.New(),
			Content:    "chunk content",
			Score:      0.5,
			Category:   "general",
			ChunkIndex: i,
			Metadata:   map[string]any{},
		}
	}
	return &Entry{Results: results, TotalFound: n}
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := DeriveKey("searchd", "docs", 1, "query")
	want := testEntry(3)

	_, ok := s.Get(ctx, key)
	assert.False(t, ok, "empty store misses")

	assert.True(t, s.Set(ctx, key, want, 0))

	got, ok := s.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, want.TotalFound, got.TotalFound)
	require.Len(t, got.Results, 3)
	assert.Equal(t, want.Results[0].ID, got.Results[0].ID)
	assert.Equal(t, want.Results[2].ChunkIndex, got.Results[2].ChunkIndex)
}

func TestStoreTTLExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := DeriveKey("searchd", "docs", 1, "short lived")
	require.True(t, s.Set(ctx, key, testEntry(1), 50*time.Millisecond))

	_, ok := s.Get(ctx, key)
	assert.True(t, ok)

	time.Sleep(100 * time.Millisecond)
	_, ok = s.Get(ctx, key)
	assert.False(t, ok, "entry must expire after its TTL")
}

func TestStoreDeleteSingleKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := DeriveKey("searchd", "docs", 1, "q")
	require.True(t, s.Set(ctx, key, testEntry(1), 0))

	assert.Equal(t, 1, s.Delete(ctx, key))

	_, ok := s.Get(ctx, key)
	assert.False(t, ok)
}

func TestStoreDeletePattern(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, q := range []string{"first query", "second query", "third query"} {
		require.True(t, s.Set(ctx, DeriveKey("searchd", "docs", 1, q), testEntry(1), 0))
	}
	otherKey := DeriveKey("searchd", "other", 1, "first query")
	require.True(t, s.Set(ctx, otherKey, testEntry(1), 0))

	deleted := s.Delete(ctx, ProjectPattern("searchd", "docs"))
	assert.Equal(t, 3, deleted)

	for _, q := range []string{"first query", "second query", "third query"} {
		_, ok := s.Get(ctx, DeriveKey("searchd", "docs", 1, q))
		assert.False(t, ok)
	}

	_, ok := s.Get(ctx, otherKey)
	assert.True(t, ok, "entries for other tenants survive pattern delete")
}

func TestStoreDeletePatternSpansVersions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.True(t, s.Set(ctx, DeriveKey("searchd", "docs", 1, "q"), testEntry(1), 0))
	require.True(t, s.Set(ctx, DeriveKey("searchd", "docs", 2, "q"), testEntry(1), 0))

	assert.Equal(t, 2, s.Delete(ctx, ProjectPattern("searchd", "docs")))
}

func TestStoreGetCancelledContext(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	key := DeriveKey("searchd", "docs", 1, "q")
	require.True(t, s.Set(ctx, key, testEntry(1), 0))

	cancel()
	_, ok := s.Get(ctx, key)
	assert.False(t, ok, "cancelled context degrades to miss")
}
