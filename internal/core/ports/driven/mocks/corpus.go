package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

var _ driven.CorpusSource = (*MockCorpusSource)(nil)

// MockCorpusSource serves a fixed set of manuals
type MockCorpusSource struct {
	mu    sync.Mutex
	docs  []domain.SourceDocument
	reads int

	Err error
}

// NewMockCorpusSource creates a corpus with the given documents
func NewMockCorpusSource(docs ...domain.SourceDocument) *MockCorpusSource {
	return &MockCorpusSource{docs: docs}
}

func (m *MockCorpusSource) Documents(ctx context.Context) ([]domain.SourceDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]domain.SourceDocument(nil), m.docs...), nil
}

func (m *MockCorpusSource) Root() string {
	return "memory"
}

// SetDocuments replaces the corpus contents
func (m *MockCorpusSource) SetDocuments(docs ...domain.SourceDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = docs
}

// Reads returns how many times the corpus was read
func (m *MockCorpusSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}
