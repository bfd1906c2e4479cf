// Package search implements hybrid retrieval and the request orchestrator.
package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/searchd/internal/store"
	"github.com/fyrsmithlabs/searchd/internal/vectorstore"
)

// rrfK dampens the influence of rank position in reciprocal rank fusion.
// 60 is the value from the original RRF paper and works well untuned.
const rrfK = 60

// VectorQuerier is the vector side of the hybrid executor.
type VectorQuerier interface {
	Query(ctx context.Context, projectID uuid.UUID, vector []float32, limit int, category string) ([]vectorstore.Candidate, error)
}

// LexicalSearcher is the full-text side of the hybrid executor.
type LexicalSearcher interface {
	SearchLexical(ctx context.Context, projectID uuid.UUID, query string, limit int, category string) ([]store.LexicalResult, error)
}

// Candidate is one fused hybrid hit.
type Candidate struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Content    string
	// Score is the fused relevance normalized to [0,1].
	Score float64
}

// Executor runs the vector and lexical legs of a hybrid query concurrently
// and fuses the ranked lists with reciprocal rank fusion. Both legs are
// scoped to one project; a failure in either leg fails the query.
type Executor struct {
	vectors VectorQuerier
	lexical LexicalSearcher
}

// NewExecutor creates a hybrid executor over the two retrieval legs.
func NewExecutor(vectors VectorQuerier, lexical LexicalSearcher) *Executor {
	return &Executor{vectors: vectors, lexical: lexical}
}

// Search runs both legs with the same limit and returns up to limit fused
// candidates, best first.
func (e *Executor) Search(ctx context.Context, projectID uuid.UUID, query string, vector []float32, limit int, category string) ([]Candidate, error) {
	var (
		vectorHits  []vectorstore.Candidate
		lexicalHits []store.LexicalResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.vectors.Query(gctx, projectID, vector, limit, category)
		if err != nil {
			return fmt.Errorf("vector query: %w", err)
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := e.lexical.SearchLexical(gctx, projectID, query, limit, category)
		if err != nil {
			return fmt.Errorf("lexical query: %w", err)
		}
		lexicalHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuse(vectorHits, lexicalHits)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}

// fuse merges the two ranked lists with reciprocal rank fusion and
// normalizes scores to [0,1]. A chunk appearing in both lists accumulates
// both rank contributions, so agreement between the legs outranks a top
// position in just one.
func fuse(vectorHits []vectorstore.Candidate, lexicalHits []store.LexicalResult) []Candidate {
	merged := make(map[uuid.UUID]*Candidate, len(vectorHits)+len(lexicalHits))

	for rank, hit := range vectorHits {
		merged[hit.ChunkID] = &Candidate{
			ChunkID:    hit.ChunkID,
			DocumentID: hit.DocumentID,
			ChunkIndex: hit.ChunkIndex,
			Content:    hit.Content,
			Score:      rrfScore(rank),
		}
	}

	for rank, hit := range lexicalHits {
		if existing, ok := merged[hit.ChunkID]; ok {
			existing.Score += rrfScore(rank)
			continue
		}
		merged[hit.ChunkID] = &Candidate{
			ChunkID:    hit.ChunkID,
			DocumentID: hit.DocumentID,
			ChunkIndex: hit.ChunkIndex,
			Content:    hit.Content,
			Score:      rrfScore(rank),
		}
	}

	// The best possible fused score is rank 0 in both lists.
	maxScore := 2 * rrfScore(0)

	fused := make([]Candidate, 0, len(merged))
	for _, c := range merged {
		c.Score /= maxScore
		fused = append(fused, *c)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		// Deterministic order for equal scores.
		return fused[i].ChunkID.String() < fused[j].ChunkID.String()
	})
	return fused
}

func rrfScore(rank int) float64 {
	return 1.0 / float64(rrfK+rank+1)
}
