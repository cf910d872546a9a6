package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

var _ driven.ImageStore = (*MockImageStore)(nil)

// MockImageStore keeps images in memory keyed by path
type MockImageStore struct {
	mu     sync.Mutex
	images map[string][]byte

	SaveErr error
}

// NewMockImageStore creates an empty MockImageStore
func NewMockImageStore() *MockImageStore {
	return &MockImageStore{images: make(map[string][]byte)}
}

func (m *MockImageStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	path := "mem://" + name
	m.images[path] = append([]byte(nil), data...)
	return path, nil
}

func (m *MockImageStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.images, path)
	return nil
}

// Image returns a stored image and whether it exists
func (m *MockImageStore) Image(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.images[path]
	return data, ok
}

// Len returns the number of stored images
func (m *MockImageStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.images)
}
