package driven

import (
	"context"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// AuthAdapter handles authentication cryptographic operations.
// Operator records come from OperatorStore.
type AuthAdapter interface {
	// Password operations
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool

	// Token operations
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}

// OperatorStore looks up dashboard operators
type OperatorStore interface {
	// Get retrieves an operator by username. Returns ErrNotFound if unknown.
	Get(ctx context.Context, username string) (*domain.Operator, error)

	// List returns all operators
	List(ctx context.Context) ([]*domain.Operator, error)
}
