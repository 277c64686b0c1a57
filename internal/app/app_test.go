package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homesync/internal/config"
	"homesync/internal/services"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewNotifier(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Env = "development"

	n, capture, err := newNotifier(cfg, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, capture)
	assert.Same(t, capture, n)

	cfg.Email.SMTPHost = "smtp.example.com"
	cfg.Email.SMTPPort = 587
	n, capture, err = newNotifier(cfg, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, capture)
	assert.IsType(t, &services.EmailNotifier{}, n)

	cfg.Email.Template = "/does/not/exist.html"
	_, _, err = newNotifier(cfg, quietLogger())
	require.Error(t, err)
}

func TestNewDenylist(t *testing.T) {
	d, closeFn, err := newDenylist(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, d)
	closeFn()

	mr := miniredis.RunT(t)
	d, closeFn, err = newDenylist(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer closeFn()
	require.NotNil(t, d)
	require.NoError(t, d.Revoke(context.Background(), "jti-1", time.Minute))
	revoked, err := d.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	addr := mr.Addr()
	mr.Close()
	_, _, err = newDenylist(context.Background(), addr)
	require.Error(t, err)
}

func TestNewAlerter_Disabled(t *testing.T) {
	a, err := newAlerter(config.TelegramConfig{})
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(corsMiddleware())
	r.POST("/api/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
