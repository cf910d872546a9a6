package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log/slog"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driving"
)

// Ensure analysisService implements AnalysisService
var _ driving.AnalysisService = (*analysisService)(nil)

// DefaultTopK is how many manual passages back a diagnosis
const DefaultTopK = 3

// DefaultMaxImagePixels is the largest width*height accepted for decoding
const DefaultMaxImagePixels int64 = 89_478_485

// Action templates. The found variants take the snippet block last.
const (
	actionOKNoSources = "No obvious defect detected. Continue normal operation but monitor periodically."
	actionNGNoSources = "A defect is detected, but no matching manual section was found. " +
		"Please check the machine manually and consult senior engineer."
	actionOKSources = "Status appears OK (defect_type=%s).\n\nRelevant preventive maintenance info:\n%s"
	actionNGSources = "Detected defect='%s' with confidence=%.2f.\n\nRecommended actions from manuals:\n%s"

	snippetSeparator = "\n\n---\n\n"
)

// analysisService implements the diagnostic request pipeline
type analysisService struct {
	classifier driven.DefectClassifier
	index      driving.IndexService
	logs       driving.LogService
	topK       int
	maxPixels  int64
	logger     *slog.Logger
	now        func() time.Time
}

// AnalysisConfig holds dependencies for the analysis pipeline.
type AnalysisConfig struct {
	Classifier driven.DefectClassifier
	Index      driving.IndexService
	Logs       driving.LogService // Optional: nil disables request logging
	TopK       int                // Passages per diagnosis (default: 3)
	Logger     *slog.Logger
	Now        func() time.Time

	// MaxImagePixels bounds decoded image size (default: DefaultMaxImagePixels)
	MaxImagePixels int64
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(cfg AnalysisConfig) (driving.AnalysisService, error) {
	if cfg.Classifier == nil || cfg.Index == nil {
		return nil, fmt.Errorf("%w: classifier and index are required", domain.ErrInvalidInput)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	maxPixels := cfg.MaxImagePixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxImagePixels
	}

	return &analysisService{
		classifier: cfg.Classifier,
		index:      cfg.Index,
		logs:       cfg.Logs,
		topK:       topK,
		maxPixels:  maxPixels,
		logger:     logger,
		now:        now,
	}, nil
}

// Analyze classifies the image, looks up matching manual passages and
// composes the recommendation. Logging happens after the response is
// complete; a logging failure is reported but never returned.
func (s *analysisService) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	start := s.now()

	if err := ValidateImage(req.Image, s.maxPixels); err != nil {
		return nil, err
	}

	result, err := s.classifier.Classify(ctx, req.Image, req.Question)
	if err != nil {
		if errors.Is(err, domain.ErrClassification) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrClassification, s.classifier.Name(), err)
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}

	query := domain.RetrievalQuery(result.DefectType)
	sources, err := s.index.Search(ctx, query, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search manuals for %q: %w", query, err)
	}

	resp := &domain.AnalyzeResponse{
		Status:            result.Status,
		DefectType:        result.DefectType,
		Confidence:        result.Confidence,
		ActionRecommended: BuildActionText(result, sources),
		RAGSources:        sources,
		LatencyMS:         float64(s.now().Sub(start)) / float64(time.Millisecond),
	}

	s.record(ctx, req, resp)

	s.logger.Info("analysis complete",
		"client_id", req.EffectiveClientID(),
		"defect_type", resp.DefectType,
		"status", resp.Status,
		"sources", len(resp.RAGSources),
		"latency_ms", resp.LatencyMS,
	)
	return resp, nil
}

func (s *analysisService) record(ctx context.Context, req domain.AnalyzeRequest, resp *domain.AnalyzeResponse) {
	if s.logs == nil {
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode response for request log", "error", err)
		return
	}

	// The client already has its answer; don't let cancellation drop the record
	if _, err := s.logs.Record(context.WithoutCancel(ctx), req, resp, body); err != nil {
		s.logger.Error("failed to record analysis",
			"client_id", req.EffectiveClientID(),
			"defect_type", resp.DefectType,
			"error", err,
		)
	}
}

// ValidateImage checks that data decodes as a supported raster image of at
// most maxPixels pixels. The header is checked before any pixel data is
// allocated.
func ValidateImage(data []byte, maxPixels int64) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", domain.ErrInvalidImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %s image has no pixels", domain.ErrInvalidImage, format)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return fmt.Errorf("%w: %s image is %dx%d, over the %d pixel limit",
			domain.ErrInvalidImage, format, cfg.Width, cfg.Height, maxPixels)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidImage, format, err)
	}
	return nil
}

// BuildActionText picks the recommendation template for a status and
// whether any manual passages were found.
func BuildActionText(result *domain.ClassificationResult, sources []domain.RetrievedSource) string {
	if len(sources) == 0 {
		if result.Status == domain.StatusOK {
			return actionOKNoSources
		}
		return actionNGNoSources
	}

	snippets := FormatSnippets(sources)
	if result.Status == domain.StatusOK {
		return fmt.Sprintf(actionOKSources, result.DefectType, snippets)
	}
	return fmt.Sprintf(actionNGSources, result.DefectType, result.Confidence, snippets)
}

// FormatSnippets renders sources as "[manual p.N] snippet" blocks.
func FormatSnippets(sources []domain.RetrievedSource) string {
	parts := make([]string, len(sources))
	for i, src := range sources {
		parts[i] = fmt.Sprintf("[%s p.%d] %s", src.ManualName, src.Page, src.Snippet)
	}
	return strings.Join(parts, snippetSeparator)
}
