package driven

import (
	"context"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// DefectClassifier labels a machine image.
// Implementations guarantee that a "normal" label comes back with status OK.
type DefectClassifier interface {
	// Classify returns the defect verdict for an image.
	// The operator question, when present, is extra prompt context.
	Classify(ctx context.Context, image []byte, question string) (*domain.ClassificationResult, error)

	// Name identifies the classifier in logs and health output
	Name() string
}
