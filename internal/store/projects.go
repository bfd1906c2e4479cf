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

// CreateProject inserts a new project. The slug is immutable once assigned.
func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CorpusVersion == 0 {
		p.CorpusVersion = 1
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	settings, err := json.Marshal(orEmptyMap(p.Settings))
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, slug, name, settings, corpus_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Slug, p.Name, string(settings), p.CorpusVersion, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: project slug %q", ErrConflict, p.Slug)
		}
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

// GetProjectBySlug returns the project with the given slug.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	return s.getProject(ctx, "slug = ?", slug)
}

// GetProjectByID returns the project with the given durable identifier.
func (s *Store) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.getProject(ctx, "id = ?", id.String())
}

func (s *Store) getProject(ctx context.Context, where string, arg any) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, settings, corpus_version, created_at, updated_at
		FROM projects WHERE `+where, arg)

	var (
		p       models.Project
		idRaw   string
		rawJSON string
	)
	err := row.Scan(&idRaw, &p.Slug, &p.Name, &rawJSON, &p.CorpusVersion, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: project", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	p.ID, err = uuid.Parse(idRaw)
	if err != nil {
		return nil, fmt.Errorf("parsing project id: %w", err)
	}
	if err := json.Unmarshal([]byte(rawJSON), &p.Settings); err != nil {
		return nil, fmt.Errorf("decoding project settings: %w", err)
	}
	return &p, nil
}

// BumpCorpusVersion increments the project's corpus version and returns the
// new value. The version only ever increases.
func (s *Store) BumpCorpusVersion(ctx context.Context, projectID uuid.UUID) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE projects
		SET corpus_version = corpus_version + 1, updated_at = ?
		WHERE id = ?
		RETURNING corpus_version`,
		time.Now().UTC(), projectID.String())

	var version int
	err := row.Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}
	if err != nil {
		return 0, fmt.Errorf("bumping corpus version: %w", err)
	}
	return version, nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
