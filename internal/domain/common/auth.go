package common

import "github.com/golang-jwt/jwt/v5"

// Claims represents the custom claims carried by API bearer tokens.
type Claims struct {
	Role                 string `json:"rol,omitempty"`   // operator role
	Scope                string `json:"scope,omitempty"` // Optional scope information.
	jwt.RegisteredClaims        // Embed standard claims (ExpiresAt, IssuedAt, Subject, etc.).
}
