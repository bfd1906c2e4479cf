package embeddings

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ProviderConfig configures one embedding provider in the precedence list.
type ProviderConfig struct {
	// Type selects the provider: "openai" or "ollama".
	Type string

	// BaseURL is the provider endpoint.
	// For OpenAI-compatible services: https://api.openai.com/v1 or a TEI URL.
	// For Ollama: http://localhost:11434.
	BaseURL string

	// Model is the embedding model name.
	Model string

	// APIKey authenticates OpenAI-compatible endpoints. Optional for
	// local services.
	APIKey string
}

// Validate validates the provider configuration.
func (c ProviderConfig) Validate() error {
	switch c.Type {
	case "openai", "ollama":
	default:
		return fmt.Errorf("%w: unknown provider type %q", ErrInvalidConfig, c.Type)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// langchainProvider adapts a langchaingo embedder to the Provider interface.
type langchainProvider struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
}

func (p *langchainProvider) Dimension() int {
	return p.dimension
}

func (p *langchainProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEmbeddingFailed, p.model, err)
	}
	return vector, nil
}

func (p *langchainProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEmbeddingFailed, p.model, err)
	}
	return vectors, nil
}

// newOpenAIProvider builds a provider backed by an OpenAI-compatible
// embeddings endpoint. This covers both OpenAI's API and local TEI servers.
func newOpenAIProvider(config ProviderConfig, dimension int) (Provider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		// langchaingo requires a token, use placeholder for local services
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &langchainProvider{embedder: embedder, model: config.Model, dimension: dimension}, nil
}

// newOllamaProvider builds a provider backed by a local Ollama server.
func newOllamaProvider(config ProviderConfig, dimension int) (Provider, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(config.BaseURL),
		ollama.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Ollama client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &langchainProvider{embedder: embedder, model: config.Model, dimension: dimension}, nil
}

// NewProvider resolves the provider list once at construction time. The
// first entry that validates and constructs successfully wins; later
// entries are fallbacks for startup only, never consulted per request.
// The returned provider is wrapped in a Guard enforcing dimension and
// recording generation metrics (metrics may be nil).
func NewProvider(configs []ProviderConfig, dimension int, metrics *Metrics) (Provider, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: at least one provider required", ErrInvalidConfig)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}

	var lastErr error
	for _, config := range configs {
		if err := config.Validate(); err != nil {
			lastErr = err
			continue
		}

		var (
			provider Provider
			err      error
		)
		switch config.Type {
		case "openai":
			provider, err = newOpenAIProvider(config, dimension)
		case "ollama":
			provider, err = newOllamaProvider(config, dimension)
		}
		if err != nil {
			lastErr = err
			continue
		}

		return NewGuard(provider, dimension, config.Model, metrics)
	}

	return nil, fmt.Errorf("no usable embedding provider: %w", lastErr)
}
