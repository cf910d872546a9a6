package mocks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

var _ driven.AuthAdapter = (*MockAuthAdapter)(nil)

// MockAuthAdapter uses plain text passwords and base64 JSON tokens.
// NOT secure - only for testing.
type MockAuthAdapter struct{}

// NewMockAuthAdapter creates a new MockAuthAdapter
func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{}
}

// HashPassword returns the password as-is
func (m *MockAuthAdapter) HashPassword(password string) (string, error) {
	return password, nil
}

// VerifyPassword compares password with hash directly
func (m *MockAuthAdapter) VerifyPassword(password, hash string) bool {
	return password == hash
}

// GenerateToken encodes the claims as base64 JSON
func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ParseToken decodes a token produced by GenerateToken
func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	var claims domain.TokenClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return &claims, nil
}

var _ driven.OperatorStore = (*MockOperatorStore)(nil)

// MockOperatorStore holds operators in memory
type MockOperatorStore struct {
	mu        sync.RWMutex
	operators map[string]*domain.Operator
}

// NewMockOperatorStore creates a store seeded with the given operators
func NewMockOperatorStore(ops ...*domain.Operator) *MockOperatorStore {
	m := &MockOperatorStore{operators: make(map[string]*domain.Operator)}
	for _, op := range ops {
		m.operators[op.Username] = op
	}
	return m
}

func (m *MockOperatorStore) Get(ctx context.Context, username string) (*domain.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.operators[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return op, nil
}

func (m *MockOperatorStore) List(ctx context.Context) ([]*domain.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Operator, 0, len(m.operators))
	for _, op := range m.operators {
		result = append(result, op)
	}
	return result, nil
}
