package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

var _ driven.DefectClassifier = (*MockClassifier)(nil)

// MockClassifier returns a preset verdict and records its inputs
type MockClassifier struct {
	mu        sync.Mutex
	result    domain.ClassificationResult
	err       error
	questions []string

	// ClassifyFn replaces the preset verdict when set
	ClassifyFn func(image []byte, question string) (*domain.ClassificationResult, error)
}

// NewMockClassifier creates a classifier that always answers with result
func NewMockClassifier(result domain.ClassificationResult) *MockClassifier {
	return &MockClassifier{result: result}
}

func (m *MockClassifier) Classify(ctx context.Context, image []byte, question string) (*domain.ClassificationResult, error) {
	m.mu.Lock()
	m.questions = append(m.questions, question)
	fn, result, err := m.ClassifyFn, m.result, m.err
	m.mu.Unlock()

	if fn != nil {
		return fn(image, question)
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (m *MockClassifier) Name() string {
	return "mock"
}

// SetError makes every following call fail
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Questions returns the questions passed so far
func (m *MockClassifier) Questions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.questions...)
}
