package domain

import (
	"fmt"
	"strings"
)

// MaxEmbeddingInputs caps how many strings one embeddings request may carry.
const MaxEmbeddingInputs = 2048

// EmbeddingRequest is the provider-neutral embeddings request.
type EmbeddingRequest struct {
	Model            string
	Input            []string
	ProviderOverride string
}

// Validate checks the request. The returned error is of kind KindValidation.
func (r EmbeddingRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return NewValidationError("model is required")
	}
	if len(r.Input) == 0 {
		return NewValidationError("input must not be empty")
	}
	if len(r.Input) > MaxEmbeddingInputs {
		return NewValidationError(fmt.Sprintf("input has %d entries, at most %d are allowed", len(r.Input), MaxEmbeddingInputs))
	}
	for i, s := range r.Input {
		if strings.TrimSpace(s) == "" {
			return NewValidationError(fmt.Sprintf("input[%d] must not be blank", i))
		}
	}
	return nil
}

// EmbeddingResult holds one vector per input, in input order.
type EmbeddingResult struct {
	Embeddings [][]float64
	ModelUsed  string
	Usage      Usage
}
