package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProvider returns canned vectors of a fixed width.
type fakeProvider struct {
	width int
	err   error
}

func (f *fakeProvider) Dimension() int { return f.width }

func (f *fakeProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, f.width), nil
}

func (f *fakeProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.width)
	}
	return out, nil
}

func TestNewGuard(t *testing.T) {
	_, err := NewGuard(nil, 384, "fake-model", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewGuard(&fakeProvider{width: 384}, 0, "fake-model", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	guard, err := NewGuard(&fakeProvider{width: 384}, 384, "fake-model", nil)
	require.NoError(t, err)
	assert.Equal(t, 384, guard.Dimension())
}

func TestGuardEmbedQuery(t *testing.T) {
	guard, err := NewGuard(&fakeProvider{width: 384}, 384, "fake-model", nil)
	require.NoError(t, err)

	vector, err := guard.EmbedQuery(context.Background(), "how do I configure auth")
	require.NoError(t, err)
	assert.Len(t, vector, 384)
}

func TestGuardEmbedQueryEmptyText(t *testing.T) {
	guard, err := NewGuard(&fakeProvider{width: 384}, 384, "fake-model", nil)
	require.NoError(t, err)

	_, err = guard.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestGuardRejectsWrongDimension(t *testing.T) {
	// Provider claims 384 but the guard is configured for 768. The guard
	// checks actual output length, never the provider's claim.
	guard, err := NewGuard(&fakeProvider{width: 384}, 768, "fake-model", nil)
	require.NoError(t, err)

	_, err = guard.EmbedQuery(context.Background(), "query")
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = guard.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestGuardEmbedDocuments(t *testing.T) {
	guard, err := NewGuard(&fakeProvider{width: 384}, 384, "fake-model", nil)
	require.NoError(t, err)

	vectors, err := guard.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 384)
	}
}

func TestGuardEmbedDocumentsEmpty(t *testing.T) {
	guard, err := NewGuard(&fakeProvider{width: 384}, 384, "fake-model", nil)
	require.NoError(t, err)

	_, err = guard.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestGuardRecordsGeneration(t *testing.T) {
	// The guard records every generation, including dimension violations,
	// against its metrics instance.
	guard, err := NewGuard(&fakeProvider{width: 384}, 384, "bge-small", NewMetrics(zap.NewNop()))
	require.NoError(t, err)
	require.NotNil(t, guard.metrics)

	_, err = guard.EmbedQuery(context.Background(), "query")
	require.NoError(t, err)

	_, err = guard.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	bad, err := NewGuard(&fakeProvider{width: 384}, 768, "bge-small", NewMetrics(zap.NewNop()))
	require.NoError(t, err)
	_, err = bad.EmbedQuery(context.Background(), "query")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestProviderConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ProviderConfig
		wantErr bool
	}{
		{
			name:   "valid openai",
			config: ProviderConfig{Type: "openai", BaseURL: "https://api.openai.com/v1", Model: "text-embedding-3-small"},
		},
		{
			name:   "valid ollama",
			config: ProviderConfig{Type: "ollama", BaseURL: "http://localhost:11434", Model: "nomic-embed-text"},
		},
		{
			name:    "unknown type",
			config:  ProviderConfig{Type: "cohere", BaseURL: "http://localhost", Model: "m"},
			wantErr: true,
		},
		{
			name:    "missing base URL",
			config:  ProviderConfig{Type: "openai", Model: "m"},
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  ProviderConfig{Type: "openai", BaseURL: "http://localhost"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewProviderRequiresConfig(t *testing.T) {
	_, err := NewProvider(nil, 384, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewProvider([]ProviderConfig{{Type: "openai", BaseURL: "http://localhost", Model: "m"}}, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewProviderSkipsInvalidEntries(t *testing.T) {
	// First entry is malformed, second is usable. Precedence moves on at
	// startup rather than failing outright.
	provider, err := NewProvider([]ProviderConfig{
		{Type: "openai"},
		{Type: "openai", BaseURL: "http://localhost:8080/v1", Model: "BAAI/bge-small-en-v1.5"},
	}, 384, nil)
	require.NoError(t, err)
	assert.Equal(t, 384, provider.Dimension())
}

func TestNewProviderAllInvalid(t *testing.T) {
	_, err := NewProvider([]ProviderConfig{
		{Type: "openai"},
		{Type: "nope", BaseURL: "x", Model: "y"},
	}, 384, nil)
	require.Error(t, err)
}
