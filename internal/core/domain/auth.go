package domain

import "time"

// Role defines operator permission level
type Role string

const (
	RoleAdmin    Role = "admin"    // Rebuild the index, everything operators can do
	RoleOperator Role = "operator" // Resolve and unresolve logged issues
	RoleViewer   Role = "viewer"   // Read reports only
)

// Valid checks if the role is a known value
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// CanResolve checks if the role may change resolution state
func (r Role) CanResolve() bool {
	return r == RoleAdmin || r == RoleOperator
}

// Operator is a configured dashboard user
type Operator struct {
	Username     string `json:"username" yaml:"username"`
	PasswordHash string `json:"-" yaml:"password_hash"` // Never serialize
	Role         Role   `json:"role" yaml:"role"`
}

// AuthContext contains authenticated operator info for request context
type AuthContext struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsAdmin checks if the authenticated operator is an admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful authentication
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// IsExpired checks the claims against the given time
func (c *TokenClaims) IsExpired(now time.Time) bool {
	return now.Unix() >= c.ExpiresAt
}
