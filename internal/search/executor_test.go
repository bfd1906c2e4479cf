package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/searchd/internal/store"
	"github.com/fyrsmithlabs/searchd/internal/vectorstore"
)

type fakeVectors struct {
	hits []vectorstore.Candidate
	err  error
}

func (f *fakeVectors) Query(ctx context.Context, projectID uuid.UUID, vector []float32, limit int, category string) ([]vectorstore.Candidate, error) {
	return f.hits, f.err
}

type fakeLexical struct {
	hits []store.LexicalResult
	err  error
}

func (f *fakeLexical) SearchLexical(ctx context.Context, projectID uuid.UUID, query string, limit int, category string) ([]store.LexicalResult, error) {
	return f.hits, f.err
}

func vecHit(id uuid.UUID, content string) vectorstore.Candidate {
	return vectorstore.Candidate{ChunkID: id, DocumentID: uuid.New(), Content: content, Score: 0.9}
}

func lexHit(id uuid.UUID, content string) store.LexicalResult {
	return store.LexicalResult{ChunkID: id, DocumentID: uuid.New(), Content: content, Score: 0.8}
}

func TestExecutorFusesBothLegs(t *testing.T) {
	shared := uuid.New()
	vecOnly := uuid.New()
	lexOnly := uuid.New()

	exec := NewExecutor(
		&fakeVectors{hits: []vectorstore.Candidate{vecHit(vecOnly, "vector only"), vecHit(shared, "shared")}},
		&fakeLexical{hits: []store.LexicalResult{lexHit(shared, "shared"), lexHit(lexOnly, "lexical only")}},
	)

	fused, err := exec.Search(context.Background(), uuid.New(), "query", []float32{0.1}, 10, "")
	require.NoError(t, err)
	require.Len(t, fused, 3)

	// The shared chunk accumulates both rank contributions and wins, even
	// though it was not first in either leg.
	assert.Equal(t, shared, fused[0].ChunkID)
}

func TestExecutorScoresNormalized(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	exec := NewExecutor(
		&fakeVectors{hits: []vectorstore.Candidate{vecHit(ids[0], "a"), vecHit(ids[1], "b")}},
		&fakeLexical{hits: []store.LexicalResult{lexHit(ids[0], "a"), lexHit(ids[2], "c")}},
	)

	fused, err := exec.Search(context.Background(), uuid.New(), "query", []float32{0.1}, 10, "")
	require.NoError(t, err)

	for _, c := range fused {
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
	}
	// Rank 0 in both legs is the normalization ceiling.
	assert.InDelta(t, 1.0, fused[0].Score, 1e-9)
}

func TestExecutorLimitsResults(t *testing.T) {
	var vecHits []vectorstore.Candidate
	for i := 0; i < 5; i++ {
		vecHits = append(vecHits, vecHit(uuid.New(), "content"))
	}

	exec := NewExecutor(&fakeVectors{hits: vecHits}, &fakeLexical{})

	fused, err := exec.Search(context.Background(), uuid.New(), "query", []float32{0.1}, 3, "")
	require.NoError(t, err)
	assert.Len(t, fused, 3)
}

func TestExecutorVectorLegFailure(t *testing.T) {
	boom := errors.New("qdrant unavailable")
	exec := NewExecutor(
		&fakeVectors{err: boom},
		&fakeLexical{hits: []store.LexicalResult{lexHit(uuid.New(), "a")}},
	)

	_, err := exec.Search(context.Background(), uuid.New(), "query", []float32{0.1}, 10, "")
	assert.ErrorIs(t, err, boom)
}

func TestExecutorLexicalLegFailure(t *testing.T) {
	boom := errors.New("fts query failed")
	exec := NewExecutor(
		&fakeVectors{hits: []vectorstore.Candidate{vecHit(uuid.New(), "a")}},
		&fakeLexical{err: boom},
	)

	_, err := exec.Search(context.Background(), uuid.New(), "query", []float32{0.1}, 10, "")
	assert.ErrorIs(t, err, boom)
}

func TestExecutorEmptyLegs(t *testing.T) {
	exec := NewExecutor(&fakeVectors{}, &fakeLexical{})

	fused, err := exec.Search(context.Background(), uuid.New(), "query", []float32{0.1}, 10, "")
	require.NoError(t, err)
	assert.Empty(t, fused)
}
