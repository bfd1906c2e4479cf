package tenant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/searchd/internal/models"
	"github.com/fyrsmithlabs/searchd/internal/store"
)

// fakeProjectStore serves projects from maps, recording lookup order.
type fakeProjectStore struct {
	bySlug  map[string]*models.Project
	byID    map[uuid.UUID]*models.Project
	lookups []string
	failErr error
}

func (f *fakeProjectStore) GetProjectBySlug(_ context.Context, slug string) (*models.Project, error) {
	f.lookups = append(f.lookups, "slug")
	if f.failErr != nil {
		return nil, f.failErr
	}
	if p, ok := f.bySlug[slug]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: project", store.ErrNotFound)
}

func (f *fakeProjectStore) GetProjectByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	f.lookups = append(f.lookups, "id")
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: project", store.ErrNotFound)
}

func TestResolveBySlug(t *testing.T) {
	p := &models.Project{ID: uuid.New(), Slug: "docs", CorpusVersion: 4}
	fs := &fakeProjectStore{bySlug: map[string]*models.Project{"docs": p}}
	r := NewResolver(fs)

	info, err := r.Resolve(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, p.ID, info.ID)
	assert.Equal(t, 4, info.CorpusVersion)
	assert.Equal(t, []string{"slug"}, fs.lookups)
}

func TestResolveByUUIDFallback(t *testing.T) {
	p := &models.Project{ID: uuid.New(), Slug: "docs", CorpusVersion: 2}
	fs := &fakeProjectStore{
		bySlug: map[string]*models.Project{},
		byID:   map[uuid.UUID]*models.Project{p.ID: p},
	}
	r := NewResolver(fs)

	info, err := r.Resolve(context.Background(), p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "docs", info.Slug)
	assert.Equal(t, []string{"slug", "id"}, fs.lookups, "slug lookup runs before id fallback")
}

func TestResolveSlugWinsOverUUIDShape(t *testing.T) {
	id := uuid.New()
	slugProject := &models.Project{ID: uuid.New(), Slug: id.String(), CorpusVersion: 1}
	idProject := &models.Project{ID: id, Slug: "other", CorpusVersion: 9}
	fs := &fakeProjectStore{
		bySlug: map[string]*models.Project{id.String(): slugProject},
		byID:   map[uuid.UUID]*models.Project{id: idProject},
	}
	r := NewResolver(fs)

	info, err := r.Resolve(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, slugProject.ID, info.ID, "slug match takes precedence over identifier parse")
}

func TestResolveNotFound(t *testing.T) {
	fs := &fakeProjectStore{bySlug: map[string]*models.Project{}}
	r := NewResolver(fs)

	_, err := r.Resolve(context.Background(), "does-not-exist")
	assert.True(t, errors.Is(err, ErrProjectNotFound))

	_, err = r.Resolve(context.Background(), uuid.New().String())
	assert.True(t, errors.Is(err, ErrProjectNotFound))
}

func TestResolvePropagatesStoreFailures(t *testing.T) {
	fs := &fakeProjectStore{failErr: errors.New("connection refused")}
	r := NewResolver(fs)

	_, err := r.Resolve(context.Background(), "docs")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrProjectNotFound), "infrastructure failures are not not-found")
}
