package ai

import (
	"fmt"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory creates model-backed services based on configuration
type Factory struct{}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from settings
func (f *Factory) CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	switch settings.Provider {
	case domain.EmbeddingProviderLocal:
		return NewLocalEmbedding(settings.Dimensions), nil
	case domain.EmbeddingProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL, settings.Dimensions)
	case domain.EmbeddingProviderOllama:
		return NewOllamaEmbedding(OllamaConfig{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

// CreateClassifier creates a defect classifier from settings
func (f *Factory) CreateClassifier(settings domain.ClassifierSettings) (driven.DefectClassifier, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	switch settings.Provider {
	case domain.ClassifierProviderStub:
		return NewStubClassifier(settings.Labels, settings.Seed)
	case domain.ClassifierProviderFixed:
		return NewFixedClassifier(settings.Fixed)
	case domain.ClassifierProviderHTTP:
		return NewHTTPClassifier(settings.Endpoint, settings.APIKey, settings.Timeout)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
