package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

// Ensure StaticOperatorStore implements OperatorStore
var _ driven.OperatorStore = (*StaticOperatorStore)(nil)

// StaticOperatorStore serves operators declared in configuration.
// The set is fixed for the life of the process.
type StaticOperatorStore struct {
	operators map[string]*domain.Operator
}

// NewStaticOperatorStore validates and indexes the configured operators
func NewStaticOperatorStore(operators []domain.Operator) (*StaticOperatorStore, error) {
	s := &StaticOperatorStore{operators: make(map[string]*domain.Operator, len(operators))}
	for i, op := range operators {
		username := strings.TrimSpace(op.Username)
		if username == "" {
			return nil, fmt.Errorf("%w: operator %d has no username", domain.ErrInvalidInput, i)
		}
		if !op.Role.Valid() {
			return nil, fmt.Errorf("%w: operator %s has role %q", domain.ErrInvalidInput, username, op.Role)
		}
		if op.PasswordHash == "" {
			return nil, fmt.Errorf("%w: operator %s has no password hash", domain.ErrInvalidInput, username)
		}
		if _, dup := s.operators[username]; dup {
			return nil, fmt.Errorf("%w: duplicate operator %s", domain.ErrInvalidInput, username)
		}
		op.Username = username
		s.operators[username] = &op
	}
	return s, nil
}

// Get retrieves an operator by username
func (s *StaticOperatorStore) Get(_ context.Context, username string) (*domain.Operator, error) {
	op, ok := s.operators[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *op
	return &cp, nil
}

// List returns all operators sorted by username
func (s *StaticOperatorStore) List(_ context.Context) ([]*domain.Operator, error) {
	out := make([]*domain.Operator, 0, len(s.operators))
	for _, op := range s.operators {
		cp := *op
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
