package services

import (
	"context"
	"strings"
	"time"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// DefaultTokenTTL is how long an operator token stays valid
const DefaultTokenTTL = 12 * time.Hour

// authService implements the AuthService interface.
// Tokens are stateless: a token is valid until it expires.
type authService struct {
	operators   driven.OperatorStore
	authAdapter driven.AuthAdapter
	tokenTTL    time.Duration
	now         func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	operators driven.OperatorStore,
	authAdapter driven.AuthAdapter,
	tokenTTL time.Duration,
) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &authService{
		operators:   operators,
		authAdapter: authAdapter,
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}
}

// Authenticate validates credentials and issues a token
func (s *authService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	op, err := s.operators.Get(ctx, username)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !s.authAdapter.VerifyPassword(req.Password, op.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := s.authAdapter.GenerateToken(&domain.TokenClaims{
		Username:  op.Username,
		Role:      op.Role,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  op.Username,
		Role:      op.Role,
	}, nil
}

// ValidateToken validates a JWT token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.IsExpired(s.now()) {
		return nil, domain.ErrTokenExpired
	}
	if !claims.Role.Valid() {
		return nil, domain.ErrTokenInvalid
	}

	// Operators removed from configuration lose access immediately
	if _, err := s.operators.Get(ctx, claims.Username); err != nil {
		return nil, domain.ErrUnauthorized
	}

	return &domain.AuthContext{
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
