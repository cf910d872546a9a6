package ai

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

var (
	_ driven.DefectClassifier = (*StubClassifier)(nil)
	_ driven.DefectClassifier = (*FixedClassifier)(nil)
)

// Confidence bounds for stub NG verdicts
const (
	stubNormalConfidence = 0.9
	stubMinConfidence    = 0.7
	stubMaxConfidence    = 0.95
)

// StubClassifier draws a random label for every image. It stands in for a
// vision model during development; a fixed seed makes runs reproducible.
type StubClassifier struct {
	mu     sync.Mutex
	rng    *rand.Rand
	labels []string
}

// NewStubClassifier creates a stub classifier. A zero seed uses the clock.
func NewStubClassifier(labels []string, seed int64) (*StubClassifier, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: stub classifier requires labels", domain.ErrInvalidInput)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &StubClassifier{
		rng:    rand.New(rand.NewSource(seed)),
		labels: append([]string(nil), labels...),
	}, nil
}

// Classify ignores the image and picks a label uniformly
func (s *StubClassifier) Classify(ctx context.Context, _ []byte, _ string) (*domain.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	label := s.labels[s.rng.Intn(len(s.labels))]
	result := &domain.ClassificationResult{DefectType: label}
	if result.IsNormal() {
		result.Status = domain.StatusOK
		result.Confidence = stubNormalConfidence
	} else {
		result.Status = domain.StatusNG
		result.Confidence = stubMinConfidence + s.rng.Float64()*(stubMaxConfidence-stubMinConfidence)
	}
	return result, nil
}

func (s *StubClassifier) Name() string { return "stub" }

// FixedClassifier returns the same verdict for every image
type FixedClassifier struct {
	result domain.ClassificationResult
}

// NewFixedClassifier creates a classifier that always answers with result
func NewFixedClassifier(result domain.ClassificationResult) (*FixedClassifier, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}
	if result.IsNormal() && result.Status != domain.StatusOK {
		return nil, fmt.Errorf("%w: normal must be reported as OK", domain.ErrInvalidInput)
	}
	return &FixedClassifier{result: result}, nil
}

func (f *FixedClassifier) Classify(ctx context.Context, _ []byte, _ string) (*domain.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := f.result
	return &result, nil
}

func (f *FixedClassifier) Name() string { return "fixed" }
