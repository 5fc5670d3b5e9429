package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expired reports whether raw is a JWT whose exp claim has passed. Opaque
// tokens and JWTs without exp are left for the server to judge.
func expired(raw string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}
