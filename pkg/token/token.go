// Package token signs and verifies the session cookie value.
// This is a leaf package with no domain dependencies. Used by internal/api/middleware.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// ===== CONSTANTS =====

const (
	// Issuer is stamped into every token and required on parse.
	Issuer = "cleverq"

	keySize    = 32
	hkdfSalt   = "cleverq-session-cookie"
	hkdfInfo   = "hs256-signing-key"
	randSecret = 32
)

var (
	ErrEmptyToken   = errors.New("token is empty")
	ErrInvalidToken = errors.New("invalid session token")
)

// ===== CLAIMS =====

// Claims carries the session id as the JWT subject.
type Claims struct {
	jwt.RegisteredClaims
}

// SessionID is the subject claim.
func (c *Claims) SessionID() string {
	return c.Subject
}

// ===== SIGNER =====

// Signer issues and verifies HS256 session tokens with a key derived from a
// configured secret.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner derives the signing key from secret with HKDF-SHA256. An empty
// secret selects a random one, so tokens do not survive a restart.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	ikm := []byte(secret)
	if secret == "" {
		ikm = make([]byte, randSecret)
		if _, err := rand.Read(ikm); err != nil {
			return nil, fmt.Errorf("token: random secret: %w", err)
		}
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, []byte(hkdfSalt), []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("token: derive key: %w", err)
	}
	return &Signer{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Issue returns a signed token for sessionID valid for the signer's TTL.
func (s *Signer) Issue(sessionID string) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Parse validates the signature, issuer and expiry and returns the claims.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	tok, err := parser.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
