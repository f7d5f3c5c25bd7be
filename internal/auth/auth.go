// Package auth guards the HTTP and WebSocket surfaces. Clients exchange a
// pre-shared access key for a short-lived HS256 session token; raw TCP and
// Unix socket connections are local and bypass this entirely.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	// ErrInvalidKey is returned when an access key does not match the
	// configured hash
	ErrInvalidKey = errors.New("invalid access key")

	// ErrInvalidToken is returned when a session token fails validation
	ErrInvalidToken = errors.New("invalid token")
)

// Service verifies access keys and issues session tokens.
type Service struct {
	keyHash  string
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

// New creates a Service. keyHash is the bcrypt hash of the access key,
// secret signs session tokens, ttl bounds their lifetime.
func New(keyHash, secret string, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		keyHash:  keyHash,
		secret:   []byte(secret),
		tokenTTL: ttl,
		logger:   logger,
	}
}

// Authenticate checks an access key and, on success, returns a session
// token plus its expiry.
func (s *Service) Authenticate(accessKey string) (string, time.Time, error) {
	if !CheckAccessKey(accessKey, s.keyHash) {
		s.logger.Warn("access key rejected")
		return "", time.Time{}, ErrInvalidKey
	}
	return s.IssueToken()
}

// IssueToken creates a signed session token.
func (s *Service) IssueToken() (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub": "metaforge-client",
		"iat": now.Unix(),
		"exp": expires.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken checks a session token's signature and expiry.
func (s *Service) ValidateToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify exact signing method to prevent algorithm confusion attacks
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
