package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/searchd/internal/cache"
	"github.com/fyrsmithlabs/searchd/internal/models"
	"github.com/fyrsmithlabs/searchd/internal/reranker"
	"github.com/fyrsmithlabs/searchd/internal/store"
	"github.com/fyrsmithlabs/searchd/internal/tenant"
)

var tracer = otel.Tracer("searchd.search")

// overfetchFactor is how many times topK candidates each retrieval leg
// fetches, giving the reranker room to reorder beyond the final cut.
const overfetchFactor = 2

// TenantResolver maps a project identifier to project identity.
type TenantResolver interface {
	Resolve(ctx context.Context, identifier string) (tenant.Info, error)
}

// ResponseCache is the response cache consumed by the service. Lookups
// never fail: any fault inside the cache reads as a miss.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*cache.Entry, bool)
	Set(ctx context.Context, key string, entry *cache.Entry, ttl time.Duration) bool
}

// MetadataStore resolves document metadata for result assembly.
type MetadataStore interface {
	ChunkMetadata(ctx context.Context, chunkIDs []uuid.UUID) (map[uuid.UUID]store.ChunkMeta, error)
}

// Embedder generates the query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// HybridSearcher runs the fused two-leg retrieval.
type HybridSearcher interface {
	Search(ctx context.Context, projectID uuid.UUID, query string, vector []float32, limit int, category string) ([]Candidate, error)
}

// Config holds service tuning knobs.
type Config struct {
	// Namespace prefixes every cache key.
	Namespace string
	// CacheTTL bounds how long cached responses live. Version bumps
	// invalidate earlier; the TTL only caps residency.
	CacheTTL time.Duration
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Namespace == "" {
		c.Namespace = cache.DefaultNamespace
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = cache.DefaultTTL
	}
}

// Service orchestrates a search request: validate, resolve the tenant,
// consult the cache, and on a miss run the embed/retrieve/rerank/assemble
// pipeline before caching the answer.
//
// The cache is a performance layer only. Every cache fault on either the
// read or write side degrades to uncached operation; it can never fail a
// request or serve a result from another tenant or corpus version.
type Service struct {
	resolver TenantResolver
	cache    ResponseCache
	embedder Embedder
	hybrid   HybridSearcher
	metadata MetadataStore
	reranker reranker.Reranker
	metrics  *Metrics
	logger   *zap.Logger
	config   Config
}

// NewService wires the search pipeline.
func NewService(resolver TenantResolver, responseCache ResponseCache, embedder Embedder, hybrid HybridSearcher, metadata MetadataStore, rr reranker.Reranker, metrics *Metrics, logger *zap.Logger, config Config) *Service {
	config.ApplyDefaults()
	return &Service{
		resolver: resolver,
		cache:    responseCache,
		embedder: embedder,
		hybrid:   hybrid,
		metadata: metadata,
		reranker: rr,
		metrics:  metrics,
		logger:   logger,
		config:   config,
	}
}

// Search answers one search request.
func (s *Service) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()

	started := time.Now()

	req.Normalize()
	if err := req.Validate(); err != nil {
		s.metrics.RecordError(ctx, "validate")
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	info, err := s.resolver.Resolve(ctx, req.ProjectID)
	if err != nil {
		s.metrics.RecordError(ctx, "resolve")
		span.SetStatus(codes.Error, "tenant resolution failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("project.id", info.ID.String()),
		attribute.Int("project.corpus_version", info.CorpusVersion),
	)

	// The cache key carries the canonical project id and corpus version,
	// so a stale entry is unreachable the moment the version bumps. The
	// hashed portion covers every request field that shapes the answer.
	key := cache.DeriveKey(s.config.Namespace, info.ID.String(), info.CorpusVersion, canonicalQuery(req))

	if entry, ok := s.cache.Get(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		s.metrics.RecordSearch(ctx, time.Since(started), true)
		return s.respond(req, info, entry, true, started), nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	vector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		s.metrics.RecordError(ctx, "embed")
		span.SetStatus(codes.Error, "embedding failed")
		return nil, err
	}

	fetchLimit := req.TopK * overfetchFactor
	candidates, err := s.hybrid.Search(ctx, info.ID, req.Query, vector, fetchLimit, req.Category)
	if err != nil {
		s.metrics.RecordError(ctx, "retrieve")
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, err
	}
	totalFound := len(candidates)

	results := toResults(candidates)

	if req.RerankerEnabled() && s.reranker != nil {
		results, err = s.reranker.Rerank(ctx, req.Query, results, req.TopK)
		if err != nil {
			s.metrics.RecordError(ctx, "rerank")
			span.SetStatus(codes.Error, "rerank failed")
			return nil, fmt.Errorf("reranking results: %w", err)
		}
	} else {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
		if len(results) > req.TopK {
			results = results[:req.TopK]
		}
	}

	results, err = s.attachMetadata(ctx, results)
	if err != nil {
		s.metrics.RecordError(ctx, "assemble")
		span.SetStatus(codes.Error, "metadata assembly failed")
		return nil, err
	}

	entry := &cache.Entry{Results: results, TotalFound: totalFound}
	if !s.cache.Set(ctx, key, entry, s.config.CacheTTL) {
		s.logger.Debug("cache write skipped",
			zap.String("project_id", info.ID.String()),
			zap.Int("corpus_version", info.CorpusVersion))
	}

	s.metrics.RecordSearch(ctx, time.Since(started), false)
	return s.respond(req, info, entry, false, started), nil
}

// attachMetadata joins document metadata onto the ranked results in one
// batch query. A chunk whose document vanished mid-flight is dropped.
func (s *Service) attachMetadata(ctx context.Context, results []models.ChunkResult) ([]models.ChunkResult, error) {
	if len(results) == 0 {
		return results, nil
	}

	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}

	metas, err := s.metadata.ChunkMetadata(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving chunk metadata: %w", err)
	}

	assembled := make([]models.ChunkResult, 0, len(results))
	for _, r := range results {
		meta, ok := metas[r.ID]
		if !ok {
			s.logger.Warn("dropping result with missing metadata",
				zap.String("chunk_id", r.ID.String()))
			continue
		}
		r.DocumentPath = meta.DocumentPath
		r.DocumentTitle = meta.DocumentTitle
		r.Category = meta.Category
		r.Metadata = meta.Metadata
		assembled = append(assembled, r)
	}
	return assembled, nil
}

func (s *Service) respond(req *models.SearchRequest, info tenant.Info, entry *cache.Entry, cacheHit bool, started time.Time) *models.SearchResponse {
	results := entry.Results
	if !req.IncludeMetadata {
		stripped := make([]models.ChunkResult, len(results))
		for i, r := range results {
			r.Metadata = nil
			stripped[i] = r
		}
		results = stripped
	}

	// ProjectID echoes whatever identifier the caller sent, slug or UUID;
	// the canonical id stays internal to the cache key and vector filters.
	return &models.SearchResponse{
		Results:       results,
		Query:         req.Query,
		ProjectID:     req.ProjectID,
		TotalFound:    entry.TotalFound,
		LatencyMS:     time.Since(started).Milliseconds(),
		CacheHit:      cacheHit,
		CorpusVersion: info.CorpusVersion,
	}
}

// canonicalQuery folds every answer-shaping request field into the string
// hashed for the cache key, so requests differing only in top_k, category
// or reranker use never collide.
func canonicalQuery(req *models.SearchRequest) string {
	return fmt.Sprintf("%s|%d|%s|%t", req.Query, req.TopK, req.Category, req.RerankerEnabled())
}

func toResults(candidates []Candidate) []models.ChunkResult {
	results := make([]models.ChunkResult, len(candidates))
	for i, c := range candidates {
		results[i] = models.ChunkResult{
			ID:         c.ChunkID,
			DocumentID: c.DocumentID,
			Content:    c.Content,
			Score:      c.Score,
			ChunkIndex: c.ChunkIndex,
		}
	}
	return results
}
