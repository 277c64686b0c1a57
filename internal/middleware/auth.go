package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"homesync/internal/services"
)

const (
	CookieToken  = "token"
	CookieUserID = "userId"

	// ContextUserID holds the admitted user id on protected routes.
	ContextUserID = "user_id"
)

// TokenVerifier is the part of the Token Service the guard needs.
type TokenVerifier interface {
	Verify(ctx context.Context, token, claimedUserID string) services.TokenStatus
}

// Credentials reads the token and the claimed user id. Cookies come first; API clients
// may send "Authorization: Bearer <token>" with an X-User-Id header instead.
func Credentials(c *gin.Context) (token, userID string) {
	token, _ = c.Cookie(CookieToken)
	userID, _ = c.Cookie(CookieUserID)

	if token == "" {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
		}
	}
	if userID == "" {
		userID = strings.TrimSpace(c.GetHeader("X-User-Id"))
	}
	return token, userID
}

// tokenStatus never panics past the guard: anything unexpected counts as not authenticated.
func tokenStatus(c *gin.Context, tokens TokenVerifier, logger *slog.Logger) (status services.TokenStatus, userID string) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(c.Request.Context(), "access guard: token check panicked",
				"path", c.Request.URL.Path, "panic", r)
			status = services.TokenInvalid
		}
	}()
	token, userID := Credentials(c)
	return tokens.Verify(c.Request.Context(), token, userID), userID
}

// RequireAuth admits only requests carrying a Valid token for the claimed user; everyone
// else is redirected to redirectTo. Missing, Invalid and Mismatch are not told apart.
func RequireAuth(tokens TokenVerifier, redirectTo string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, userID := tokenStatus(c, tokens, logger)
		if status != services.TokenValid {
			logger.DebugContext(c.Request.Context(), "access guard: redirect",
				"path", c.Request.URL.Path, "status", status.String())
			c.Redirect(http.StatusFound, redirectTo)
			c.Abort()
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// RequireAuthJSON is RequireAuth for API routes: 401 instead of a redirect.
func RequireAuthJSON(tokens TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, userID := tokenStatus(c, tokens, logger)
		if status != services.TokenValid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized."})
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// RequireAnonymous sends already authenticated visitors to redirectTo (login and register pages).
func RequireAnonymous(tokens TokenVerifier, redirectTo string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, _ := tokenStatus(c, tokens, logger)
		if status == services.TokenValid {
			c.Redirect(http.StatusFound, redirectTo)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the id stored by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
