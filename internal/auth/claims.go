package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// SubjectID is the manager username or the subscriber phone number;
// Role distinguishes the two surfaces (see internal/rbac).
type Claims struct {
	jwt.RegisteredClaims

	SubjectID string    `json:"subject_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
