package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQdrantConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     QdrantConfig
		wantErr bool
	}{
		{
			name: "valid",
			cfg:  QdrantConfig{Host: "localhost", Port: 6334, CollectionName: "searchd_chunks", VectorSize: 1024},
		},
		{
			name:    "missing host",
			cfg:     QdrantConfig{Port: 6334, CollectionName: "searchd_chunks", VectorSize: 1024},
			wantErr: true,
		},
		{
			name:    "bad port",
			cfg:     QdrantConfig{Host: "localhost", Port: 70000, CollectionName: "searchd_chunks", VectorSize: 1024},
			wantErr: true,
		},
		{
			name:    "uppercase collection name",
			cfg:     QdrantConfig{Host: "localhost", Port: 6334, CollectionName: "Chunks", VectorSize: 1024},
			wantErr: true,
		},
		{
			name:    "zero vector size",
			cfg:     QdrantConfig{Host: "localhost", Port: 6334, CollectionName: "searchd_chunks"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQdrantConfigApplyDefaults(t *testing.T) {
	cfg := QdrantConfig{CollectionName: "searchd_chunks", VectorSize: 1024}
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
}
