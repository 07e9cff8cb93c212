package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails to parse or verify.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the claim payload embedded in every issued token. It mirrors
// the public fields of a user row so handlers can read the caller without a
// database round trip.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Claims is the full JWT claim set for issued tokens.
type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration // 0 means tokens never expire
}

// NewTokenManager creates a TokenManager. A zero ttl issues tokens without
// an expiry claim.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token for the given identity.
func (tm *TokenManager) Sign(id Identity) (string, error) {
	claims := Claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if tm.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(tm.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Verify parses a token string and returns the embedded identity. Any
// failure, including a wrong signing method or an expired token, is reported
// as ErrInvalidToken.
func (tm *TokenManager) Verify(tokenString string) (Identity, error) {
	claims, err := tm.VerifyClaims(tokenString)
	if err != nil {
		return Identity{}, err
	}
	return claims.Identity, nil
}

// VerifyClaims is Verify with access to the full claim set, so callers can
// read the expiry.
func (tm *TokenManager) VerifyClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TTL reports the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}
