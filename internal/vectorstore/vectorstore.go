// Package vectorstore provides the vector side of hybrid search.
package vectorstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the vector store is unreachable.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrBadVector indicates a vector whose dimensionality does not match
	// the collection. This is a data-integrity fault, never repaired here.
	ErrBadVector = errors.New("vector dimension mismatch")
)

// Point is one chunk vector with its retrieval payload.
type Point struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	ProjectID  uuid.UUID
	ChunkIndex int
	Category   string
	Content    string
	Vector     []float32
}

// Candidate is one similarity hit returned by Query.
type Candidate struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Content    string
	// Score is cosine similarity in [0,1] (higher is more similar).
	Score float64
}

// Store is the vector storage interface consumed by the hybrid executor.
//
// Tenant isolation is payload-based: every point carries its project id and
// every query filters on it. There is no per-tenant collection.
type Store interface {
	// EnsureCollection creates the collection with the configured dimension
	// if it does not exist yet.
	EnsureCollection(ctx context.Context) error

	// UpsertPoints writes chunk vectors with their payloads.
	UpsertPoints(ctx context.Context, points []Point) error

	// Query returns up to limit candidates for the project, most similar
	// first, optionally restricted to a document category.
	Query(ctx context.Context, projectID uuid.UUID, vector []float32, limit int, category string) ([]Candidate, error)

	// DeleteDocument removes every point belonging to the document.
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error

	// Healthy reports store reachability.
	Healthy(ctx context.Context) error

	// Close releases the client connection.
	Close() error
}
