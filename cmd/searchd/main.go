// Searchd is a multi-tenant semantic search daemon for project documentation.
//
// It serves hybrid (vector + lexical) search over per-project corpora with
// corpus-version-keyed response caching, backed by Qdrant for vectors and
// SQLite FTS5 for full-text.
//
// Usage:
//
//	# Start with defaults
//	searchd
//
//	# Point at a config file
//	searchd -config /etc/searchd/config.yaml
//
//	# Configure via environment
//	SERVER_HTTP_PORT=9090 QDRANT_HOST=qdrant.internal searchd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/searchd/internal/cache"
	"github.com/fyrsmithlabs/searchd/internal/config"
	"github.com/fyrsmithlabs/searchd/internal/embeddings"
	httpserver "github.com/fyrsmithlabs/searchd/internal/http"
	"github.com/fyrsmithlabs/searchd/internal/ingest"
	"github.com/fyrsmithlabs/searchd/internal/logging"
	"github.com/fyrsmithlabs/searchd/internal/reranker"
	"github.com/fyrsmithlabs/searchd/internal/search"
	"github.com/fyrsmithlabs/searchd/internal/store"
	"github.com/fyrsmithlabs/searchd/internal/telemetry"
	"github.com/fyrsmithlabs/searchd/internal/tenant"
	"github.com/fyrsmithlabs/searchd/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  searchd            Start the search daemon\n")
			fmt.Fprintf(os.Stderr, "  searchd version    Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("searchd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run initializes every dependency, starts the HTTP server and blocks
// until the context is cancelled, then shuts everything down in reverse
// order.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting searchd",
		zap.String("version", version),
		zap.Int("http_port", cfg.Server.Port))

	// Metrics pipeline first: instruments created below bind to the global
	// meter provider at construction time.
	if cfg.Observability.EnableTelemetry {
		meterProvider, err := telemetry.SetupMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("initializing metrics: %w", err)
		}
		defer func() {
			if err := meterProvider.Shutdown(context.Background()); err != nil {
				logger.Warn("shutting down meter provider", zap.Error(err))
			}
		}()
	}

	// Relational store: projects, documents, chunks and the FTS index.
	db, err := store.Open(ctx, store.Config{Path: cfg.Storage.Path, MaxConns: cfg.Storage.MaxConns})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	// Response cache.
	responseCache, err := cache.NewStore(cache.Config{
		Path:       cfg.Cache.Path,
		InMemory:   cfg.Cache.InMemory,
		DefaultTTL: cfg.Cache.TTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer responseCache.Close()

	// Embedding provider chain, resolved once. The dimension is the
	// system-wide contract shared with the vector collection.
	embedder, err := embeddings.NewProvider(providerConfigs(cfg), cfg.Embedding.Dimension,
		embeddings.NewMetrics(logger))
	if err != nil {
		return fmt.Errorf("initializing embeddings: %w", err)
	}

	// Vector store.
	vectors, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		Host:           cfg.Qdrant.Host,
		Port:           cfg.Qdrant.Port,
		CollectionName: cfg.Qdrant.CollectionName,
		VectorSize:     uint64(cfg.Embedding.Dimension),
		UseTLS:         cfg.Qdrant.UseTLS,
		APIKey:         cfg.Qdrant.APIKey.Value(),
	})
	if err != nil {
		return fmt.Errorf("connecting to qdrant: %w", err)
	}
	defer vectors.Close()

	if err := vectors.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}

	rr, err := reranker.NewTermOverlap(cfg.Reranker.Workers)
	if err != nil {
		return fmt.Errorf("initializing reranker: %w", err)
	}
	defer rr.Close()

	resolver := tenant.NewResolver(db)
	executor := search.NewExecutor(vectors, db)
	searcher := search.NewService(resolver, responseCache, embedder, executor, db, rr,
		search.NewMetrics(logger), logger, search.Config{
			Namespace: cfg.Cache.Namespace,
			CacheTTL:  cfg.Cache.TTL,
		})

	ingestor := ingest.New(db, vectors, embedder, responseCache, logger, cfg.Cache.Namespace)

	checks := []httpserver.HealthCheck{
		{Name: "store", Check: db.Ping},
		{Name: "cache", Check: func(ctx context.Context) error {
			if !responseCache.Ping() {
				return fmt.Errorf("cache closed")
			}
			return nil
		}},
		{Name: "vectorstore", Check: vectors.Healthy},
	}

	server, err := httpserver.NewServer(searcher, ingestor, resolver, db, checks, logger, &httpserver.Config{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func providerConfigs(cfg *config.Config) []embeddings.ProviderConfig {
	configs := make([]embeddings.ProviderConfig, len(cfg.Embedding.Providers))
	for i, p := range cfg.Embedding.Providers {
		configs[i] = embeddings.ProviderConfig{
			Type:    p.Type,
			BaseURL: p.BaseURL,
			Model:   p.Model,
			APIKey:  p.APIKey.Value(),
		}
	}
	return configs
}
