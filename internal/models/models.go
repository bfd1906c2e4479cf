// Package models defines the data entities and API contracts for searchd.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a tenant: an isolated document collection with its own slug and
// corpus version. CorpusVersion only ever increases; it is embedded in cache
// keys so that a version bump invalidates every cached answer for the tenant.
type Project struct {
	ID            uuid.UUID      `json:"id"`
	Slug          string         `json:"slug"`
	Name          string         `json:"name"`
	Settings      map[string]any `json:"settings,omitempty"`
	CorpusVersion int            `json:"corpus_version"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Document is a single indexed file belonging to exactly one project.
// Path is unique within the project. ContentHash detects re-ingestion of
// unchanged content.
type Document struct {
	ID          uuid.UUID      `json:"id"`
	ProjectID   uuid.UUID      `json:"project_id"`
	Path        string         `json:"path"`
	Title       string         `json:"title,omitempty"`
	ContentHash string         `json:"content_hash"`
	Category    string         `json:"category"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Chunk is a slice of a document's text carrying one embedding vector.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
}

// ChunkResult is a single search hit returned to the caller.
type ChunkResult struct {
	ID            uuid.UUID      `json:"id"`
	DocumentID    uuid.UUID      `json:"document_id"`
	Content       string         `json:"content"`
	Score         float64        `json:"score"`
	DocumentPath  string         `json:"document_path"`
	DocumentTitle string         `json:"document_title,omitempty"`
	Category      string         `json:"category"`
	ChunkIndex    int            `json:"chunk_index"`
	Metadata      map[string]any `json:"metadata"`
}

// SearchResponse is the full answer to a search request.
type SearchResponse struct {
	Results       []ChunkResult `json:"results"`
	Query         string        `json:"query"`
	ProjectID     string        `json:"project_id"`
	TotalFound    int           `json:"total_found"`
	LatencyMS     int64         `json:"latency_ms"`
	CacheHit      bool          `json:"cache_hit"`
	CorpusVersion int           `json:"corpus_version"`
}

// ErrorResponse is the standard error body returned by the HTTP API.
type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}
