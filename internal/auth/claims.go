package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Kind is one of the rbac principal kinds (user, mentor, admin).
type Claims struct {
	jwt.RegisteredClaims

	PrincipalID string    `json:"principal_id"`
	Kind        string    `json:"kind"`
	TokenType   TokenType `json:"token_type"`
}
