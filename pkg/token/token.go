package token

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is used when the caller does not specify a token lifetime.
const DefaultTTL = 30 * time.Minute

// ErrInvalidToken is returned for any token that fails validation: malformed
// encoding, unexpected algorithm, bad signature, expired, or missing subject.
// Validation is all-or-nothing; callers get no partial detail.
var ErrInvalidToken = errors.New("invalid token")

// Service issues and validates HS256-signed bearer tokens carrying a subject
// claim. The signing secret is injected at construction and read-only after.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// New builds a token service. ttl <= 0 falls back to DefaultTTL.
func New(secret string, ttl time.Duration) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a token with the subject and expiry now+ttl. A zero ttl uses
// the service default.
func (s *Service) Issue(subject string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token subject required")
	}
	if ttl == 0 {
		ttl = s.ttl
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate verifies signature and expiry and returns the subject claim.
func (s *Service) Validate(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
