package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LexicalResult is one full-text hit, ranked by bm25.
type LexicalResult struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Content    string
	// Score is the bm25 relevance normalized to [0,1] (higher is better).
	Score float64
}

// SearchLexical runs a bm25-ranked full-text query over the project's chunks.
// Scoping by project id is the tenant-isolation boundary; the optional
// category filter is applied to the parent document. A query with no usable
// terms returns an empty result set.
func (s *Store) SearchLexical(ctx context.Context, projectID uuid.UUID, query string, limit int, category string) ([]LexicalResult, error) {
	if limit <= 0 {
		return []LexicalResult{}, nil
	}

	match := sanitizeFTSQuery(query)
	if match == "" {
		return []LexicalResult{}, nil
	}

	sqlQuery := `
		SELECT c.id, c.document_id, c.chunk_index, c.content, bm25(chunks_fts) AS rank
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ? AND d.project_id = ?`
	args := []any{match, projectID.String()}

	if category != "" {
		sqlQuery += " AND d.category = ?"
		args = append(args, category)
	}

	// bm25() ranks better matches lower (more negative).
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("executing lexical search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]LexicalResult, 0, limit)
	for rows.Next() {
		var (
			r    stringIDs
			res  LexicalResult
			rank float64
		)
		if err := rows.Scan(&r.chunk, &r.document, &res.ChunkIndex, &res.Content, &rank); err != nil {
			return nil, fmt.Errorf("scanning lexical result: %w", err)
		}
		if res.ChunkID, err = uuid.Parse(r.chunk); err != nil {
			return nil, fmt.Errorf("parsing chunk id: %w", err)
		}
		if res.DocumentID, err = uuid.Parse(r.document); err != nil {
			return nil, fmt.Errorf("parsing document id: %w", err)
		}
		res.Score = normalizeBM25(rank)
		results = append(results, res)
	}
	return results, rows.Err()
}

type stringIDs struct {
	chunk    string
	document string
}

// normalizeBM25 maps a bm25 rank (negative, more negative is better) onto
// (0,1] with higher meaning more relevant.
func normalizeBM25(rank float64) float64 {
	rel := -rank
	if rel <= 0 {
		return 0
	}
	return rel / (rel + 1)
}

// sanitizeFTSQuery turns free text into a safe FTS5 MATCH expression: each
// term is quoted to neutralize operators, terms are ORed for recall.
func sanitizeFTSQuery(query string) string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_')
	})
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + f + `"`
	}
	return strings.Join(quoted, " OR ")
}
