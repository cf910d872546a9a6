package driving

import (
	"context"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// AnalysisService runs the diagnostic pipeline for one defect report
type AnalysisService interface {
	// Analyze classifies the image, retrieves manual guidance and
	// records the outcome. The returned response is never partial.
	Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error)
}
