// Package embeddings provides embedding generation via configured providers.
//
// The embedding dimension is a hard system-wide contract: generation, vector
// storage and every literal vector passed into a query must agree exactly.
// The Guard wrapper enforces it at the generation boundary; a mismatched
// vector is an integrity fault, never truncated or padded.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates a provider failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrDimensionMismatch indicates a vector of unexpected length.
	// This is a data-integrity fault and is always surfaced.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Provider generates fixed-dimension embeddings.
type Provider interface {
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension the provider is configured
	// to produce.
	Dimension() int
}

// Guard wraps a Provider and enforces the dimension contract on every
// returned vector. It also records generation metrics, with dimension
// violations counted as generation errors.
type Guard struct {
	inner     Provider
	dimension int
	model     string
	metrics   *Metrics
}

// NewGuard wraps the provider. The guard's dimension is authoritative; the
// wrapped provider's claim is checked against actual output, not trusted.
// Model labels the recorded metrics; metrics may be nil.
func NewGuard(inner Provider, dimension int, model string, metrics *Metrics) (*Guard, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: provider required", ErrInvalidConfig)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return &Guard{inner: inner, dimension: dimension, model: model, metrics: metrics}, nil
}

// Dimension returns the enforced dimension.
func (g *Guard) Dimension() int {
	return g.dimension
}

// EmbedQuery generates one embedding and verifies its length.
func (g *Guard) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	started := time.Now()
	vector, err := g.inner.EmbedQuery(ctx, text)
	if err == nil && len(vector) != g.dimension {
		err = fmt.Errorf("%w: provider returned %d dimensions, configured %d",
			ErrDimensionMismatch, len(vector), g.dimension)
	}
	g.metrics.RecordGeneration(ctx, g.model, "query", time.Since(started), 1, err)
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedDocuments generates a batch of embeddings and verifies every length.
func (g *Guard) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	started := time.Now()
	vectors, err := g.inner.EmbedDocuments(ctx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("%w: provider returned %d vectors for %d texts",
			ErrEmbeddingFailed, len(vectors), len(texts))
	}
	if err == nil {
		for i, v := range vectors {
			if len(v) != g.dimension {
				err = fmt.Errorf("%w: vector %d has %d dimensions, configured %d",
					ErrDimensionMismatch, i, len(v), g.dimension)
				break
			}
		}
	}
	g.metrics.RecordGeneration(ctx, g.model, "documents", time.Since(started), len(texts), err)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
