package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-abcdefghijklmnopqrstuvwxyz"

func newTestTokens(t *testing.T, ttl time.Duration, denylist Denylist) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, ttl, denylist)
	require.NoError(t, err)
	return ts
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	_, err := NewTokenService("  ", 0, nil)
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestTokenService_Verify(t *testing.T) {
	ts := newTestTokens(t, 0, nil)
	ctx := context.Background()

	tokenA, err := ts.Issue("user-a")
	require.NoError(t, err)

	other, err := NewTokenService("another-secret-abcdefghijklmnopqrstuv", 0, nil)
	require.NoError(t, err)
	foreign, err := other.Issue("user-a")
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		claimed string
		want    TokenStatus
	}{
		{"valid", tokenA, "user-a", TokenValid},
		{"missing", "", "user-a", TokenMissing},
		{"blank", "   ", "user-a", TokenMissing},
		{"malformed", "not-a-jwt", "user-a", TokenInvalid},
		{"tampered", tokenA[:len(tokenA)-2] + "xx", "user-a", TokenInvalid},
		{"other secret", foreign, "user-a", TokenInvalid},
		{"swapped account", tokenA, "user-b", TokenMismatch},
		{"no claimed id", tokenA, "", TokenMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ts.Verify(ctx, tc.token, tc.claimed))
		})
	}
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	ts := newTestTokens(t, 0, nil)
	claims := &Claims{UserID: "user-a"}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	assert.Equal(t, TokenInvalid, ts.Verify(context.Background(), none, "user-a"))
	assert.Equal(t, TokenInvalid, ts.Verify(context.Background(), hs512, "user-a"))
}

func TestTokenService_RejectsEmptySubject(t *testing.T) {
	ts := newTestTokens(t, 0, nil)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, TokenInvalid, ts.Verify(context.Background(), token, ""))
}

func TestTokenService_NoExpiryByDefault(t *testing.T) {
	ts := newTestTokens(t, 0, nil)
	token, err := ts.Issue("user-a")
	require.NoError(t, err)

	claims, err := ts.parse(token)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, 3, len(strings.Split(token, ".")))
}

func TestTokenService_ExpiredTokenInvalid(t *testing.T) {
	ts := newTestTokens(t, time.Hour, nil)
	ts.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := ts.Issue("user-a")
	require.NoError(t, err)
	assert.Equal(t, TokenValid, ts.Verify(context.Background(), token, "user-a"), "still valid on the issuing clock")

	ts.now = time.Now
	assert.Equal(t, TokenInvalid, ts.Verify(context.Background(), token, "user-a"))
}

func TestTokenService_RevokeTTLFollowsServiceClock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ts := newTestTokens(t, time.Hour, NewRedisDenylist(rdb))
	start := time.Now().Add(-30 * time.Minute)
	ts.now = func() time.Time { return start }

	token, err := ts.Issue("user-a")
	require.NoError(t, err)
	require.NoError(t, ts.Revoke(context.Background(), token))

	claims, err := ts.parse(token)
	require.NoError(t, err)
	ttl := mr.TTL(denylistKeyPrefix + claims.ID)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestTokenService_FreshTokensDiffer(t *testing.T) {
	ts := newTestTokens(t, 0, nil)
	t1, err := ts.Issue("user-a")
	require.NoError(t, err)
	t2, err := ts.Issue("user-a")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)
}

func TestNewTokenID(t *testing.T) {
	id, err := newTokenID()
	require.NoError(t, err)
	assert.Len(t, id, 2*jtiBytes)

	other, err := newTokenID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestTokenService_RevokeWithoutDenylistIsNoop(t *testing.T) {
	ts := newTestTokens(t, 0, nil)
	token, err := ts.Issue("user-a")
	require.NoError(t, err)

	require.NoError(t, ts.Revoke(context.Background(), token))
	assert.False(t, ts.CanRevoke())
	assert.Equal(t, TokenValid, ts.Verify(context.Background(), token, "user-a"))
}

func TestTokenService_RevokeWithRedisDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ts := newTestTokens(t, time.Hour, NewRedisDenylist(rdb))
	ctx := context.Background()

	revoked, err := ts.Issue("user-a")
	require.NoError(t, err)
	kept, err := ts.Issue("user-a")
	require.NoError(t, err)

	require.NoError(t, ts.Revoke(ctx, revoked))
	assert.True(t, ts.CanRevoke())
	assert.Equal(t, TokenInvalid, ts.Verify(ctx, revoked, "user-a"))
	assert.Equal(t, TokenValid, ts.Verify(ctx, kept, "user-a"))

	claims, err := ts.parse(revoked)
	require.NoError(t, err)
	ttl := mr.TTL(denylistKeyPrefix + claims.ID)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestTokenService_RevokeNonExpiringTokenKeepsEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ts := newTestTokens(t, 0, NewRedisDenylist(rdb))
	token, err := ts.Issue("user-a")
	require.NoError(t, err)
	require.NoError(t, ts.Revoke(context.Background(), token))

	claims, err := ts.parse(token)
	require.NoError(t, err)
	assert.True(t, mr.Exists(denylistKeyPrefix+claims.ID))
	assert.Equal(t, time.Duration(0), mr.TTL(denylistKeyPrefix+claims.ID))
}

func TestTokenService_DenylistUnavailableFailsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ts := newTestTokens(t, 0, NewRedisDenylist(rdb))
	token, err := ts.Issue("user-a")
	require.NoError(t, err)

	mr.Close()
	assert.Equal(t, TokenInvalid, ts.Verify(context.Background(), token, "user-a"))
}
