package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrValidation indicates a malformed or out-of-range request field.
// Requests failing validation are rejected before any external call.
var ErrValidation = errors.New("validation failed")

// DefaultTopK is the result count used when the caller does not specify one.
const DefaultTopK = 5

var validate = validator.New()

// SearchRequest is the inbound search request. UseReranker is a pointer so
// that an absent field defaults to true rather than the zero value.
type SearchRequest struct {
	Query           string `json:"query" validate:"required,min=1,max=1000"`
	ProjectID       string `json:"project_id" validate:"required,min=1,max=100"`
	TopK            int    `json:"top_k" validate:"min=1,max=50"`
	Category        string `json:"category,omitempty"`
	UseReranker     *bool  `json:"use_reranker,omitempty"`
	IncludeMetadata bool   `json:"include_metadata,omitempty"`
}

// Normalize applies defaults for fields the caller omitted.
func (r *SearchRequest) Normalize() {
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
}

// RerankerEnabled reports whether reranking was requested. Defaults to true.
func (r *SearchRequest) RerankerEnabled() bool {
	return r.UseReranker == nil || *r.UseReranker
}

// Validate checks field constraints. Callers should Normalize first so that
// defaulted fields pass range checks.
func (r *SearchRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: field %q fails %q constraint", ErrValidation, f.Field(), f.Tag())
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
