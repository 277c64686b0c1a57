package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jtiBytes is the entropy of a token id; the denylist is keyed by it.
const jtiBytes = 16

// TokenStatus is the outcome of verifying a presented token against a claimed user id.
type TokenStatus int

const (
	TokenValid TokenStatus = iota
	TokenMissing
	TokenInvalid
	TokenMismatch
)

func (s TokenStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenMissing:
		return "missing"
	case TokenInvalid:
		return "invalid"
	case TokenMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

var ErrWeakSecret = errors.New("token secret is empty")

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Denylist records revoked token ids (jti).
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenService issues and verifies HS256 identity tokens. The secret is fixed for the
// lifetime of the instance; a new secret invalidates every token issued before it.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	denylist Denylist
	now      func() time.Time
}

// NewTokenService returns a TokenService. ttl <= 0 issues tokens without an exp claim.
// denylist may be nil, in which case tokens cannot be revoked.
func NewTokenService(secret string, ttl time.Duration, denylist Denylist) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrWeakSecret
	}
	return &TokenService{
		secret:   []byte(secret),
		ttl:      ttl,
		denylist: denylist,
		now:      time.Now,
	}, nil
}

func (s *TokenService) Issue(userID string) (string, error) {
	jti, err := newTokenID()
	if err != nil {
		return "", err
	}
	now := s.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       jti,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify never reports partial validity: a revoked token, or one the denylist cannot
// vouch for, is Invalid.
func (s *TokenService) Verify(ctx context.Context, token, claimedUserID string) TokenStatus {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenMissing
	}
	claims, err := s.parse(token)
	if err != nil {
		return TokenInvalid
	}
	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil || revoked {
			return TokenInvalid
		}
	}
	if claims.UserID != strings.TrimSpace(claimedUserID) {
		return TokenMismatch
	}
	return TokenValid
}

// Revoke denylists a token until it would have expired. Without a denylist, or for a
// token that does not verify, it is a no-op.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if s.denylist == nil || strings.TrimSpace(token) == "" {
		return nil
	}
	claims, err := s.parse(token)
	if err != nil || claims.ID == "" {
		return nil
	}
	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
		if ttl <= 0 {
			return nil
		}
	}
	return s.denylist.Revoke(ctx, claims.ID, ttl)
}

// CanRevoke reports whether logout has a server-side effect.
func (s *TokenService) CanRevoke() bool {
	return s.denylist != nil
}

func (s *TokenService) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		// принимаем только HMAC
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func newTokenID() (string, error) {
	b := make([]byte, jtiBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
