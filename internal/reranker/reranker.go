// Package reranker provides result re-ranking for improving search quality.
package reranker

import (
	"context"

	"github.com/fyrsmithlabs/searchd/internal/models"
)

// Reranker reorders search results by query relevance.
type Reranker interface {
	// Rerank reorders results and truncates to topK. All fields of each
	// result are preserved; only Score and ordering change. An empty
	// input returns an empty slice without scoring.
	Rerank(ctx context.Context, query string, results []models.ChunkResult, topK int) ([]models.ChunkResult, error)

	// Close releases reranker resources.
	Close() error
}
