package driven

import (
	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// AIServiceFactory creates model-backed services from configuration
type AIServiceFactory interface {
	// CreateEmbeddingService creates an embedding service from settings
	CreateEmbeddingService(settings domain.EmbeddingSettings) (EmbeddingService, error)

	// CreateClassifier creates a defect classifier from settings
	CreateClassifier(settings domain.ClassifierSettings) (DefectClassifier, error)
}
