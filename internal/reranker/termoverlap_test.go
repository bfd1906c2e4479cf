package reranker

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/searchd/internal/models"
)

func newTestReranker(t *testing.T) *TermOverlap {
	t.Helper()
	r, err := NewTermOverlap(2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func result(content string, score float64) models.ChunkResult {
	return models.ChunkResult{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		Content:    content,
		Score:      score,
	}
}

func TestRerankEmptyInput(t *testing.T) {
	r := newTestReranker(t)

	out, err := r.Rerank(context.Background(), "database configuration", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRerankNilContext(t *testing.T) {
	r := newTestReranker(t)

	//nolint:staticcheck // exercising the nil-context guard
	_, err := r.Rerank(nil, "query", []models.ChunkResult{result("text", 0.5)}, 5)
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestRerankBoostsTermOverlap(t *testing.T) {
	r := newTestReranker(t)

	results := []models.ChunkResult{
		result("unrelated content about cooking pasta", 0.6),
		result("database configuration guide for postgres", 0.5),
	}

	out, err := r.Rerank(context.Background(), "database configuration", results, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Full term overlap outweighs the small original-score deficit.
	assert.Equal(t, "database configuration guide for postgres", out[0].Content)
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestRerankPreservesFields(t *testing.T) {
	r := newTestReranker(t)

	original := models.ChunkResult{
		ID:            uuid.New(),
		DocumentID:    uuid.New(),
		Content:       "database configuration guide",
		Score:         0.8,
		DocumentPath:  "docs/setup.md",
		DocumentTitle: "Setup",
		Category:      "guide",
		ChunkIndex:    3,
		Metadata:      map[string]any{"lang": "en"},
	}

	out, err := r.Rerank(context.Background(), "database configuration", []models.ChunkResult{original}, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, original.ID, out[0].ID)
	assert.Equal(t, original.DocumentID, out[0].DocumentID)
	assert.Equal(t, original.Content, out[0].Content)
	assert.Equal(t, original.DocumentPath, out[0].DocumentPath)
	assert.Equal(t, original.DocumentTitle, out[0].DocumentTitle)
	assert.Equal(t, original.Category, out[0].Category)
	assert.Equal(t, original.ChunkIndex, out[0].ChunkIndex)
	assert.Equal(t, original.Metadata, out[0].Metadata)
}

func TestRerankTruncatesToTopK(t *testing.T) {
	r := newTestReranker(t)

	results := []models.ChunkResult{
		result("database setup", 0.9),
		result("database tuning", 0.8),
		result("database backup", 0.7),
		result("database restore", 0.6),
	}

	out, err := r.Rerank(context.Background(), "database", results, 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestRerankStopwordOnlyQuery(t *testing.T) {
	r := newTestReranker(t)

	results := []models.ChunkResult{
		result("low score content", 0.2),
		result("high score content", 0.9),
	}

	// "what is the" tokenizes to nothing, so original scores decide.
	out, err := r.Rerank(context.Background(), "what is the", results, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "high score content", out[0].Content)
	assert.InDelta(t, 0.9, out[0].Score, 1e-9)
}

func TestRerankZeroTopK(t *testing.T) {
	r := newTestReranker(t)

	results := []models.ChunkResult{
		result("database setup", 0.9),
		result("database tuning", 0.8),
	}

	out, err := r.Rerank(context.Background(), "database", results, 0)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestTermOverlap(t *testing.T) {
	tests := []struct {
		name  string
		query string
		doc   string
		want  float64
	}{
		{"full overlap", "database configuration", "configure the database configuration here", 1.0},
		{"half overlap", "database configuration", "the database guide", 0.5},
		{"no overlap", "database configuration", "cooking pasta recipes", 0.0},
		{"duplicate query terms counted once", "database database tuning", "database internals", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := termOverlap(tokenize(tt.query), tokenize(tt.doc))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
