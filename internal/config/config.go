// Package config provides configuration loading for searchd.
//
// Configuration is loaded from a YAML file, then overridden by environment
// variables, with hardcoded defaults filling the rest.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete searchd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Storage       StorageConfig       `koanf:"storage"`
	Cache         CacheConfig         `koanf:"cache"`
	Qdrant        QdrantConfig        `koanf:"qdrant"`
	Embedding     EmbeddingConfig     `koanf:"embedding"`
	Reranker      RerankerConfig      `koanf:"reranker"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
}

// StorageConfig holds relational store configuration.
type StorageConfig struct {
	Path     string `koanf:"path"`
	MaxConns int    `koanf:"max_conns"`
}

// CacheConfig holds response cache configuration.
type CacheConfig struct {
	Path      string        `koanf:"path"`
	InMemory  bool          `koanf:"in_memory"`
	TTL       time.Duration `koanf:"ttl"`
	Namespace string        `koanf:"namespace"`
}

// QdrantConfig holds vector store connection configuration.
type QdrantConfig struct {
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	CollectionName string `koanf:"collection_name"`
	UseTLS         bool   `koanf:"use_tls"`
	APIKey         Secret `koanf:"api_key"`
}

// EmbeddingProviderConfig configures one entry in the provider precedence
// list. The first usable entry wins at startup.
type EmbeddingProviderConfig struct {
	Type    string `koanf:"type"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// EmbeddingConfig holds embedding generation configuration. Dimension is
// the system-wide vector size contract shared with the Qdrant collection.
type EmbeddingConfig struct {
	Dimension int                       `koanf:"dimension"`
	Providers []EmbeddingProviderConfig `koanf:"providers"`
}

// RerankerConfig holds reranker configuration.
type RerankerConfig struct {
	Workers int `koanf:"workers"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "searchd.db"
	}
	if cfg.Storage.MaxConns == 0 {
		cfg.Storage.MaxConns = 4
	}

	if cfg.Cache.Path == "" && !cfg.Cache.InMemory {
		cfg.Cache.Path = "searchd-cache"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Cache.Namespace == "" {
		cfg.Cache.Namespace = "searchd"
	}

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.CollectionName == "" {
		cfg.Qdrant.CollectionName = "searchd_chunks"
	}

	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 384 // bge-small-en-v1.5 dimensions
	}
	if len(cfg.Embedding.Providers) == 0 {
		cfg.Embedding.Providers = []EmbeddingProviderConfig{{
			Type:    "openai",
			BaseURL: "http://localhost:8080/v1",
			Model:   "BAAI/bge-small-en-v1.5",
		}}
	}

	if cfg.Reranker.Workers == 0 {
		cfg.Reranker.Workers = 4
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "searchd"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Storage.Path == "" {
		return errors.New("storage path required")
	}

	if c.Cache.Path == "" && !c.Cache.InMemory {
		return errors.New("cache path required unless in_memory is set")
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache ttl must be positive")
	}

	if c.Qdrant.Host == "" {
		return errors.New("qdrant host required")
	}
	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("invalid qdrant port: %d (must be 1-65535)", c.Qdrant.Port)
	}

	if c.Embedding.Dimension <= 0 {
		return errors.New("embedding dimension must be positive")
	}
	if len(c.Embedding.Providers) == 0 {
		return errors.New("at least one embedding provider required")
	}
	for i, p := range c.Embedding.Providers {
		if p.Type != "openai" && p.Type != "ollama" {
			return fmt.Errorf("embedding provider %d: unknown type %q", i, p.Type)
		}
		if p.BaseURL == "" {
			return fmt.Errorf("embedding provider %d: base_url required", i)
		}
		if p.Model == "" {
			return fmt.Errorf("embedding provider %d: model required", i)
		}
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	return nil
}
