package adapter

import (
	"fmt"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
)

// Build creates the adapter for cfg's family.
func Build(cfg domain.ProviderConfig, opts ...Option) (AIProvider, error) {
	switch cfg.Family {
	case domain.FamilyOpenAI:
		return NewOpenAIAdapter(cfg, opts...), nil
	case domain.FamilyAzure:
		return NewAzureAdapter(cfg, opts...), nil
	case domain.FamilyOllama:
		return NewOllamaAdapter(cfg, opts...), nil
	case domain.FamilyGemini:
		return NewGeminiAdapter(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported provider family %q", cfg.Family)
	}
}
