// Package auth identifies the viewer of a request.
//
// FLOW:
//  1. POST /auth/login checks email + password and issues a signed JWT. The
//     token is returned in the body and set as an HttpOnly "token" cookie.
//  2. API clients send it back as "Authorization: Bearer <jwt>"; browsers
//     send the cookie.
//  3. OptionalAuth validates it and puts the viewer's user ID in the request
//     context. No token, or a bad one, means an unauthenticated viewer.
//
// The token carries only the user ID ("sub"). Roles are NOT in the token:
// they are resolved per collective at request time, so a revoked admin
// loses access on the next request instead of at token expiry.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "donorshield"

// DefaultTokenTTL is the lifetime of tokens issued at login.
const DefaultTokenTTL = time.Hour

// ErrTokenExpired lets callers tell a stale session from a forged one.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies viewer tokens with an HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. ttl <= 0 selects DefaultTokenTTL.
// The secret should be at least 32 bytes of random data in production:
//
//	JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long a freshly issued token stays valid. The login handler
// uses it for the cookie's Max-Age.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate issues a token for userID with the service's TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.generate(userID, s.ttl)
}

func (s *TokenService) generate(userID string, d time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a subject")
	}
	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns the user ID in its subject.
//
// Only HS256 is accepted (jwt.WithValidMethods blocks the "none" and
// algorithm-confusion tricks), the issuer must match, and an expiry is
// mandatory.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("auth: invalid token")
	}
	if c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return c.Subject, nil
}
