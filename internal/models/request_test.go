package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SearchRequest
		wantErr bool
	}{
		{
			name: "valid request",
			req:  SearchRequest{Query: "how do I configure auth", ProjectID: "docs", TopK: 5},
		},
		{
			name:    "empty query",
			req:     SearchRequest{Query: "", ProjectID: "docs", TopK: 5},
			wantErr: true,
		},
		{
			name:    "query too long",
			req:     SearchRequest{Query: string(make([]byte, 1001)), ProjectID: "docs", TopK: 5},
			wantErr: true,
		},
		{
			name:    "missing project",
			req:     SearchRequest{Query: "q", TopK: 5},
			wantErr: true,
		},
		{
			name:    "top_k above bound",
			req:     SearchRequest{Query: "q", ProjectID: "docs", TopK: 51},
			wantErr: true,
		},
		{
			name:    "top_k below bound",
			req:     SearchRequest{Query: "q", ProjectID: "docs", TopK: -1},
			wantErr: true,
		},
		{
			name: "top_k at upper bound",
			req:  SearchRequest{Query: "q", ProjectID: "docs", TopK: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation), "error should be ErrValidation, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSearchRequestNormalize(t *testing.T) {
	req := SearchRequest{Query: "q", ProjectID: "docs"}
	req.Normalize()
	assert.Equal(t, DefaultTopK, req.TopK)

	req = SearchRequest{Query: "q", ProjectID: "docs", TopK: 10}
	req.Normalize()
	assert.Equal(t, 10, req.TopK)
}

func TestSearchRequestRerankerEnabled(t *testing.T) {
	req := SearchRequest{}
	assert.True(t, req.RerankerEnabled(), "reranker defaults to enabled")

	off := false
	req.UseReranker = &off
	assert.False(t, req.RerankerEnabled())

	on := true
	req.UseReranker = &on
	assert.True(t, req.RerankerEnabled())
}
