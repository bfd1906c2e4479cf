// Package tenant resolves opaque tenant identifiers to internal identity.
package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/searchd/internal/models"
	"github.com/fyrsmithlabs/searchd/internal/store"
)

// ErrProjectNotFound is returned when an identifier resolves to no known
// project. This is a client error, distinct from system faults.
var ErrProjectNotFound = errors.New("project not found")

// Info is the resolved tenant identity.
type Info struct {
	ID            uuid.UUID
	Slug          string
	CorpusVersion int
}

// ProjectStore is the subset of the relational store the resolver needs.
type ProjectStore interface {
	GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error)
	GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// Resolver maps slugs or durable identifiers to project identity.
//
// Precedence is fixed: slug lookup first, then, only when the input parses as
// a UUID, identifier lookup. A slug that happens to look like a UUID still
// wins the slug lookup.
type Resolver struct {
	projects ProjectStore
}

// NewResolver creates a resolver backed by the given project store.
func NewResolver(projects ProjectStore) *Resolver {
	return &Resolver{projects: projects}
}

// Resolve returns the tenant's internal identity and current corpus version.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (Info, error) {
	p, err := r.projects.GetProjectBySlug(ctx, identifier)
	if err == nil {
		return Info{ID: p.ID, Slug: p.Slug, CorpusVersion: p.CorpusVersion}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Info{}, fmt.Errorf("resolving project by slug: %w", err)
	}

	id, parseErr := uuid.Parse(identifier)
	if parseErr != nil {
		return Info{}, fmt.Errorf("%w: %q", ErrProjectNotFound, identifier)
	}

	p, err = r.projects.GetProjectByID(ctx, id)
	if err == nil {
		return Info{ID: p.ID, Slug: p.Slug, CorpusVersion: p.CorpusVersion}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Info{}, fmt.Errorf("resolving project by id: %w", err)
	}
	return Info{}, fmt.Errorf("%w: %q", ErrProjectNotFound, identifier)
}
