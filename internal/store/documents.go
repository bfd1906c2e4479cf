package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/searchd/internal/models"
)

// UpsertDocument inserts the document, or updates it when a document with the
// same (project, path) exists. Returns true when the stored content hash
// differs from the incoming one, i.e. the caller needs to re-index chunks.
func (s *Store) UpsertDocument(ctx context.Context, doc *models.Document) (bool, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Category == "" {
		doc.Category = "general"
	}
	now := time.Now().UTC()

	metadata, err := json.Marshal(orEmptyMap(doc.Metadata))
	if err != nil {
		return false, fmt.Errorf("marshaling document metadata: %w", err)
	}

	var existingID, existingHash string
	err = s.db.QueryRowContext(ctx,
		"SELECT id, content_hash FROM documents WHERE project_id = ? AND path = ?",
		doc.ProjectID.String(), doc.Path).Scan(&existingID, &existingHash)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		doc.CreatedAt = now
		doc.UpdatedAt = now
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO documents (id, project_id, path, title, content_hash, category, metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ID.String(), doc.ProjectID.String(), doc.Path, nullIfEmpty(doc.Title),
			doc.ContentHash, doc.Category, string(metadata), now, now)
		if err != nil {
			return false, fmt.Errorf("inserting document: %w", err)
		}
		return true, nil

	case err != nil:
		return false, fmt.Errorf("looking up document: %w", err)
	}

	// Existing document keeps its identity across re-ingestion.
	doc.ID, err = uuid.Parse(existingID)
	if err != nil {
		return false, fmt.Errorf("parsing document id: %w", err)
	}

	changed := existingHash != doc.ContentHash
	doc.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `
		UPDATE documents
		SET title = ?, content_hash = ?, category = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		nullIfEmpty(doc.Title), doc.ContentHash, doc.Category, string(metadata), now, doc.ID.String())
	if err != nil {
		return false, fmt.Errorf("updating document: %w", err)
	}
	return changed, nil
}

// ReplaceChunks atomically replaces the chunk set for a document. The FTS
// index stays in sync through triggers.
func (s *Store) ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID.String()); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	now := time.Now().UTC()
	for i := range chunks {
		c := &chunks[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.DocumentID = documentID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, chunk_index, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			c.ID.String(), documentID.String(), c.ChunkIndex, c.Content, now)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", c.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// ResetContentHash clears the stored content hash so the next ingest of the
// document re-indexes instead of short-circuiting. Used when an ingest fails
// after the document row was updated but before the corpus was fully written.
func (s *Store) ResetContentHash(ctx context.Context, documentID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET content_hash = '' WHERE id = ?", documentID.String())
	if err != nil {
		return fmt.Errorf("resetting content hash: %w", err)
	}
	return nil
}

// ChunkMeta is the parent-document metadata resolved for a selected chunk.
type ChunkMeta struct {
	ChunkID       uuid.UUID
	DocumentID    uuid.UUID
	ChunkIndex    int
	DocumentPath  string
	DocumentTitle string
	Category      string
	Metadata      map[string]any
}

// ChunkMetadata resolves parent-document metadata for a set of chunk ids in
// one query. Unknown ids are simply absent from the result map.
func (s *Store) ChunkMetadata(ctx context.Context, chunkIDs []uuid.UUID) (map[uuid.UUID]ChunkMeta, error) {
	metas := make(map[uuid.UUID]ChunkMeta, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return metas, nil
	}

	placeholders := strings.Repeat("?,", len(chunkIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		args[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, d.path, COALESCE(d.title, ''), d.category, d.metadata
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunk metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			m                ChunkMeta
			chunkRaw, docRaw string
			metadataRaw      string
		)
		if err := rows.Scan(&chunkRaw, &docRaw, &m.ChunkIndex, &m.DocumentPath, &m.DocumentTitle, &m.Category, &metadataRaw); err != nil {
			return nil, fmt.Errorf("scanning chunk metadata: %w", err)
		}
		if m.ChunkID, err = uuid.Parse(chunkRaw); err != nil {
			return nil, fmt.Errorf("parsing chunk id: %w", err)
		}
		if m.DocumentID, err = uuid.Parse(docRaw); err != nil {
			return nil, fmt.Errorf("parsing document id: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataRaw), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decoding document metadata: %w", err)
		}
		metas[m.ChunkID] = m
	}
	return metas, rows.Err()
}

// CountChunks returns the number of indexed chunks for a project.
func (s *Store) CountChunks(ctx context.Context, projectID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.project_id = ?`, projectID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
