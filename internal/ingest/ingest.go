// Package ingest writes documents into the corpus and invalidates the
// affected tenant's cached answers.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/searchd/internal/cache"
	"github.com/fyrsmithlabs/searchd/internal/models"
	"github.com/fyrsmithlabs/searchd/internal/vectorstore"
)

// DocumentStore is the relational side of ingestion.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, doc *models.Document) (bool, error)
	ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []models.Chunk) error
	ResetContentHash(ctx context.Context, documentID uuid.UUID) error
	BumpCorpusVersion(ctx context.Context, projectID uuid.UUID) (int, error)
}

// VectorWriter is the vector side of ingestion.
type VectorWriter interface {
	UpsertPoints(ctx context.Context, points []vectorstore.Point) error
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error
}

// Embedder generates chunk vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// CacheInvalidator removes cached answers by key or prefix pattern.
type CacheInvalidator interface {
	Delete(ctx context.Context, keyOrPattern string) int
}

// Request is one document to ingest, already split into chunks. Chunking
// strategy is the caller's concern.
type Request struct {
	ProjectID uuid.UUID
	Path      string
	Title     string
	Category  string
	Metadata  map[string]any
	Chunks    []string
}

// Result reports what an ingestion did.
type Result struct {
	DocumentID    uuid.UUID
	Changed       bool
	ChunkCount    int
	CorpusVersion int
}

// Ingestor coordinates document writes across the relational store, the
// vector store and the response cache.
//
// Write order matters: chunks and vectors land before the corpus version
// bumps, so a completed ingest moves readers from the old corpus at the
// old version to the new corpus at the new version. The sequence spans
// three stores and is not atomic: a failure between the chunk replace
// and the version bump leaves the new lexical chunks live at the old
// version. That window is repairable: the failure path clears the stored
// content hash so a retry re-indexes instead of short-circuiting. Cache
// invalidation runs last and is best-effort; version-keyed lookups
// already make stale entries unreachable.
type Ingestor struct {
	store    DocumentStore
	vectors  VectorWriter
	embedder Embedder
	cache    CacheInvalidator
	logger   *zap.Logger

	namespace string
}

// New creates an Ingestor. An empty namespace falls back to the default
// cache namespace.
func New(store DocumentStore, vectors VectorWriter, embedder Embedder, invalidator CacheInvalidator, logger *zap.Logger, namespace string) *Ingestor {
	if namespace == "" {
		namespace = cache.DefaultNamespace
	}
	return &Ingestor{
		store:     store,
		vectors:   vectors,
		embedder:  embedder,
		cache:     invalidator,
		logger:    logger,
		namespace: namespace,
	}
}

// Ingest upserts one document. Unchanged content (same hash) short-circuits
// without re-embedding or a version bump.
func (i *Ingestor) Ingest(ctx context.Context, req Request) (*Result, error) {
	if req.ProjectID == uuid.Nil {
		return nil, fmt.Errorf("project id required")
	}
	if req.Path == "" {
		return nil, fmt.Errorf("document path required")
	}
	if len(req.Chunks) == 0 {
		return nil, fmt.Errorf("at least one chunk required")
	}

	doc := &models.Document{
		ProjectID:   req.ProjectID,
		Path:        req.Path,
		Title:       req.Title,
		Category:    req.Category,
		Metadata:    req.Metadata,
		ContentHash: contentHash(req.Chunks),
	}

	changed, err := i.store.UpsertDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("upserting document: %w", err)
	}
	if !changed {
		i.logger.Debug("document unchanged, skipping re-index",
			zap.String("project_id", req.ProjectID.String()),
			zap.String("path", req.Path))
		return &Result{DocumentID: doc.ID, Changed: false, ChunkCount: len(req.Chunks)}, nil
	}

	chunks := make([]models.Chunk, len(req.Chunks))
	for idx, content := range req.Chunks {
		chunks[idx] = models.Chunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			ChunkIndex: idx,
			Content:    content,
		}
	}

	if err := i.store.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return nil, i.failReindex(ctx, doc.ID, fmt.Errorf("replacing chunks: %w", err))
	}

	vectors, err := i.embedder.EmbedDocuments(ctx, req.Chunks)
	if err != nil {
		return nil, i.failReindex(ctx, doc.ID, fmt.Errorf("embedding chunks: %w", err))
	}

	points := make([]vectorstore.Point, len(chunks))
	for idx, chunk := range chunks {
		points[idx] = vectorstore.Point{
			ChunkID:    chunk.ID,
			DocumentID: doc.ID,
			ProjectID:  req.ProjectID,
			ChunkIndex: chunk.ChunkIndex,
			Category:   doc.Category,
			Content:    chunk.Content,
			Vector:     vectors[idx],
		}
	}

	// Stale points from a previous version of the document may carry chunk
	// ids that no longer exist; clear them before writing the new set.
	if err := i.vectors.DeleteDocument(ctx, doc.ID); err != nil {
		return nil, i.failReindex(ctx, doc.ID, fmt.Errorf("clearing old vectors: %w", err))
	}
	if err := i.vectors.UpsertPoints(ctx, points); err != nil {
		return nil, i.failReindex(ctx, doc.ID, fmt.Errorf("upserting vectors: %w", err))
	}

	version, err := i.store.BumpCorpusVersion(ctx, req.ProjectID)
	if err != nil {
		return nil, i.failReindex(ctx, doc.ID, fmt.Errorf("bumping corpus version: %w", err))
	}

	i.invalidate(ctx, req.ProjectID)

	i.logger.Info("document ingested",
		zap.String("project_id", req.ProjectID.String()),
		zap.String("path", req.Path),
		zap.Int("chunks", len(chunks)),
		zap.Int("corpus_version", version))

	return &Result{
		DocumentID:    doc.ID,
		Changed:       true,
		ChunkCount:    len(chunks),
		CorpusVersion: version,
	}, nil
}

// failReindex clears the stored content hash after a partial re-index so a
// retry with the same payload does not short-circuit on the hash written by
// the failed pass. The clear itself is best-effort.
func (i *Ingestor) failReindex(ctx context.Context, documentID uuid.UUID, cause error) error {
	if err := i.store.ResetContentHash(ctx, documentID); err != nil {
		i.logger.Warn("failed to reset content hash after partial ingest",
			zap.String("document_id", documentID.String()),
			zap.Error(err))
	}
	return cause
}

// invalidate drops the tenant's cached answers. Failure is tolerable since
// version-keyed lookups no longer reach the old entries; the sweep just
// reclaims space early.
func (i *Ingestor) invalidate(ctx context.Context, projectID uuid.UUID) {
	pattern := cache.ProjectPattern(i.namespace, projectID.String())
	removed := i.cache.Delete(ctx, pattern)
	i.logger.Debug("cache invalidated",
		zap.String("project_id", projectID.String()),
		zap.Int("entries_removed", removed))
}

func contentHash(chunks []string) string {
	h := sha256.New()
	for _, c := range chunks {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
