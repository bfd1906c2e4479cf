package reranker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/fyrsmithlabs/searchd/internal/models"
)

// ErrNilContext is returned when a nil context is passed to Rerank.
var ErrNilContext = errors.New("context cannot be nil")

// TermOverlap re-ranks results by lexical term overlap with the query.
// The final score blends the incoming fused score (50%) with the overlap
// ratio (50%), keeping some reliance on semantic similarity while boosting
// results that repeat the query's terms. Scoring runs on a shared worker
// pool since candidate sets can be large when callers over-fetch.
type TermOverlap struct {
	pool *ants.Pool
}

// NewTermOverlap creates a TermOverlap reranker with the given number of
// scoring workers. Zero or negative workers defaults to half the CPUs.
func NewTermOverlap(workers int) (*TermOverlap, error) {
	if workers <= 0 {
		workers = runtime.NumCPU() / 2
		if workers < 1 {
			workers = 1
		}
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating scoring pool: %w", err)
	}
	return &TermOverlap{pool: pool}, nil
}

// Rerank scores each result against the query and returns them sorted by
// blended score, truncated to topK. topK <= 0 means no truncation.
func (r *TermOverlap) Rerank(ctx context.Context, query string, results []models.ChunkResult, topK int) ([]models.ChunkResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if len(results) == 0 {
		return []models.ChunkResult{}, nil
	}
	if topK <= 0 {
		topK = len(results)
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		// Nothing to match against, keep the incoming order's scores.
		return truncateByScore(results, topK), nil
	}

	reranked := make([]models.ChunkResult, len(results))
	var wg sync.WaitGroup
	for i := range results {
		i := i
		wg.Add(1)
		submitErr := r.pool.Submit(func() {
			defer wg.Done()
			candidate := results[i]
			overlap := termOverlap(queryTokens, tokenize(candidate.Content))
			candidate.Score = 0.5*candidate.Score + 0.5*overlap
			reranked[i] = candidate
		})
		if submitErr != nil {
			// Pool rejected the task, score inline.
			candidate := results[i]
			overlap := termOverlap(queryTokens, tokenize(candidate.Content))
			candidate.Score = 0.5*candidate.Score + 0.5*overlap
			reranked[i] = candidate
			wg.Done()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return truncateByScore(reranked, topK), nil
}

// Close releases the scoring pool.
func (r *TermOverlap) Close() error {
	r.pool.Release()
	return nil
}

// truncateByScore sorts descending by score and keeps the first topK.
func truncateByScore(results []models.ChunkResult, topK int) []models.ChunkResult {
	sorted := make([]models.ChunkResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if topK < len(sorted) {
		sorted = sorted[:topK]
	}
	return sorted
}

// tokenize splits text into lowercase terms, filtering out common stopwords
// and tokens shorter than three characters.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !isAlphanumeric(r)
	})

	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !isStopword(token) && len(token) > 2 {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_'
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "this": true,
	"that": true, "these": true, "those": true, "i": true, "you": true, "he": true,
	"she": true, "it": true, "we": true, "they": true, "what": true, "which": true,
	"who": true, "when": true, "where": true, "why": true, "how": true,
}

func isStopword(token string) bool {
	return stopwords[token]
}

// termOverlap returns the fraction of unique query tokens present in the
// document tokens, in [0, 1].
func termOverlap(queryTokens, docTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0.0
	}

	docTokenSet := make(map[string]bool, len(docTokens))
	for _, token := range docTokens {
		docTokenSet[token] = true
	}

	matchCount := 0
	counted := make(map[string]bool, len(queryTokens))
	uniqueQuery := 0
	for _, queryToken := range queryTokens {
		if counted[queryToken] {
			continue
		}
		counted[queryToken] = true
		uniqueQuery++
		if docTokenSet[queryToken] {
			matchCount++
		}
	}

	return float64(matchCount) / float64(uniqueQuery)
}
