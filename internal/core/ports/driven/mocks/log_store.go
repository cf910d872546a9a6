package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

var _ driven.LogStore = (*MockLogStore)(nil)

// MockLogStore keeps log records in memory
type MockLogStore struct {
	mu      sync.RWMutex
	records map[int64]*domain.LogRecord
	nextID  int64

	// AppendErr makes Append fail when set
	AppendErr error
	PingErr   error
}

// NewMockLogStore creates an empty MockLogStore
func NewMockLogStore() *MockLogStore {
	return &MockLogStore{records: make(map[int64]*domain.LogRecord), nextID: 1}
}

func (m *MockLogStore) Append(ctx context.Context, rec *domain.LogRecord, attach driven.AttachFunc) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AppendErr != nil {
		return 0, m.AppendErr
	}
	if rec == nil {
		return 0, errors.New("nil record")
	}

	id := m.nextID
	stored := *rec
	stored.ID = id
	if attach != nil {
		path, err := attach(id, stored.Timestamp)
		if err != nil {
			return 0, err
		}
		stored.ImagePath = path
	}
	m.nextID++
	m.records[id] = &stored
	return id, nil
}

func (m *MockLogStore) SetResolved(ctx context.Context, id int64, resolved bool, resolvedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Resolved = resolved
	if resolved {
		at := resolvedAt.UTC()
		rec.ResolvedAt = &at
	} else {
		rec.ResolvedAt = nil
	}
	return nil
}

func (m *MockLogStore) Get(ctx context.Context, id int64) (*domain.LogRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockLogStore) List(ctx context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.LogRecord
	for _, rec := range m.records {
		if filter.Matches(rec) {
			cp := *rec
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID > result[j].ID
		}
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockLogStore) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockLogStore) Close() error {
	return nil
}

// Insert stores a record as-is, bypassing Append (for test setup)
func (m *MockLogStore) Insert(rec *domain.LogRecord) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	cp.ID = m.nextID
	m.nextID++
	m.records[cp.ID] = &cp
	return cp.ID
}

// Count returns the number of stored records
func (m *MockLogStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
