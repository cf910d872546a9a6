package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

var _ driven.SnapshotStore = (*MockSnapshotStore)(nil)

// MockSnapshotStore keeps one snapshot in memory
type MockSnapshotStore struct {
	mu    sync.Mutex
	snap  *domain.IndexSnapshot
	saves int

	LoadErr error
	SaveErr error
}

// NewMockSnapshotStore creates an empty MockSnapshotStore
func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{}
}

func (m *MockSnapshotStore) Load(ctx context.Context) (*domain.IndexSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.snap == nil {
		return nil, domain.ErrNotFound
	}
	return m.snap, nil
}

func (m *MockSnapshotStore) Save(ctx context.Context, snap *domain.IndexSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.snap = snap
	m.saves++
	return nil
}

func (m *MockSnapshotStore) Location() string {
	return "memory"
}

// Saves returns how many snapshots were persisted
func (m *MockSnapshotStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Put seeds a snapshot without counting a save
func (m *MockSnapshotStore) Put(snap *domain.IndexSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
}
