package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultStateTTL bounds how long a user has to complete the provider's
// consent screen.
const DefaultStateTTL = 10 * time.Minute

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrEmptySecret = errors.New("jwtx: empty signing secret")
)

// StateClaims is the payload of an OAuth "state" parameter.
type StateClaims struct {
	jwt.RegisteredClaims

	// Return is an optional relative path the frontend asked to land on.
	Return string `json:"ret,omitempty"`
}

// StateSigner issues and verifies short-lived HS256 tokens used as the OAuth
// state parameter, so the callback can be checked without server-side
// session storage.
type StateSigner struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	now      func() time.Time
	audience string
}

func NewStateSigner(secret []byte, issuer string, ttl time.Duration) (*StateSigner, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateSigner{
		secret:   secret,
		issuer:   issuer,
		ttl:      ttl,
		now:      time.Now,
		audience: "oauth-state",
	}, nil
}

// WithClock replaces the time source; used by tests.
func (s *StateSigner) WithClock(now func() time.Time) *StateSigner {
	s.now = now
	return s
}

// Issue returns a signed state value.
func (s *StateSigner) Issue(ret string) (string, error) {
	now := s.now().UTC()
	claims := StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
		Return: ret,
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return tok, nil
}

// Verify checks signature, audience and expiry and returns the claims.
func (s *StateSigner) Verify(state string) (StateClaims, error) {
	var claims StateClaims

	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(s.audience),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return StateClaims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return StateClaims{}, ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return StateClaims{}, ErrAudience
	default:
		return StateClaims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
