package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = time.Hour

// ErrInvalidToken is the single outcome for every verification failure:
// bad signature, malformed payload, wrong signing method, or expiry.
// Callers get no signal about which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified subject carried by a token.
type Identity struct {
	ID       int
	Username string
}

type claims struct {
	UID      int    `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens. It holds the
// signing secret; nothing else in the process reads it.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a TokenService. A non-positive ttl falls
// back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token asserting the given identity, valid for the
// service's TTL.
func (s *TokenService) Issue(userID int, username string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UID:      userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the embedded identity.
func (s *TokenService) Verify(tokenString string) (Identity, error) {
	parsed := claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&parsed,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return s.secret, nil
		},
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if parsed.UID < 1 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{ID: parsed.UID, Username: parsed.Username}, nil
}
