package apifake

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/pkg/errors"
)

const issuer = "platform-console-fake"

// claims carried by fake backend tokens
type claims struct {
	Role users.RoleType `json:"role"`
	jwt.RegisteredClaims
}

// tokenIssuer signs HS256 access tokens and tracks revoked token ids
type tokenIssuer struct {
	key     []byte
	ttl     time.Duration
	nowFunc func() time.Time

	mu      sync.RWMutex
	revoked map[string]time.Time // jti to expiry
}

func newTokenIssuer(key []byte, ttl time.Duration, nowFunc func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		key:     key,
		ttl:     ttl,
		nowFunc: nowFunc,
		revoked: make(map[string]time.Time),
	}
}

func (ti *tokenIssuer) issue(user *users.User, ttl time.Duration) (string, error) {
	now := ti.nowFunc()
	c := claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "tokenIssuer.issue SignedString")
	}
	return signed, nil
}

// verify returns the subject of a valid, unrevoked token
func (ti *tokenIssuer) verify(raw string) (string, error) {
	if raw == "" {
		return "", errors.Wrap(api.ErrUnauthorized, "missing bearer token")
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return ti.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(ti.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", errors.Wrap(api.ErrUnauthorized, err.Error())
	}

	ti.mu.RLock()
	_, revoked := ti.revoked[c.ID]
	ti.mu.RUnlock()
	if revoked {
		return "", errors.Wrap(api.ErrUnauthorized, "token revoked")
	}
	return c.Subject, nil
}

func (ti *tokenIssuer) revoke(raw string) error {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return errors.Wrap(err, "tokenIssuer.revoke ParseUnverified")
	}
	exp := ti.nowFunc().Add(ti.ttl)
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}

	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.revoked[c.ID] = exp
	return nil
}
