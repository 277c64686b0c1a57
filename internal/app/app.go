package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"

	_ "homesync/docs"
	"homesync/internal/config"
	"homesync/internal/handlers"
	"homesync/internal/logging"
	"homesync/internal/middleware"
	"homesync/internal/repositories"
	"homesync/internal/routes"
	"homesync/internal/services"
	"homesync/internal/telemetry"
	"homesync/internal/utils"
)

const (
	serviceName     = "homesync"
	shutdownTimeout = 10 * time.Second
)

// Run starts the HTTP server and blocks until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === Telemetry ===
	providers, err := telemetry.NewProviders(ctx, cfg.Telemetry.OTLPEndpoint, serviceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", "err", err)
		}
	}()

	// === DB ===
	if err := repositories.Migrate(cfg.Database.DSN, "up"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	db, err := repositories.OpenPostgres(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("db close", "err", err)
		}
	}()
	logger.Info("DB connected!")

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	codeRepo := repositories.NewUserVerificationRepository(db, cfg.Auth.OTPTTL)

	// === Services ===
	denylist, closeDenylist, err := newDenylist(ctx, cfg.Redis.Addr)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeDenylist()

	tokens, err := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, denylist)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	logger.Info("token service ready", "ttl", cfg.Auth.TokenTTL, "revocation", tokens.CanRevoke())

	notifier, capture, err := newNotifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	alerter, err := newAlerter(cfg.Telegram)
	if err != nil {
		// alerts are optional; a bad bot token must not keep the service down
		logger.Warn("telegram alerts disabled", "err", err)
	}
	courier, err := services.NewCourier(notifier, cfg.Email.DeliveryTimeout,
		otel.Meter("homesync/internal/services"), alerter, logger)
	if err != nil {
		return err
	}

	authService := services.NewAuthService(
		userRepo,
		codeRepo,
		utils.GenerateOTP,
		courier,
		services.NewPasswordHasher(cfg.Auth.BcryptCost),
		tokens,
		logger,
	)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(authService, handlers.CookieConfig{Secure: cfg.Server.CookieSecure}, logger)
	pageHandler := handlers.NewPageHandler(cfg.Server.PublicDir)
	healthHandler := handlers.NewHealthHandler(db, logger)
	var devHandler *handlers.DevHandler
	if capture != nil {
		devHandler = handlers.NewDevHandler(capture)
		logger.Warn("SMTP not configured: verification codes are captured in memory and served at /dev/otp")
	}

	// === Gin ===
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, tokens, authHandler, pageHandler, healthHandler, devHandler, logger)

	// === Run ===
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Server.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// newNotifier picks SMTP delivery, or in-memory capture when SMTP is not configured
// outside production. capture is nil unless codes are captured.
func newNotifier(cfg *config.Config, logger *slog.Logger) (services.Notifier, *services.CaptureNotifier, error) {
	if cfg.CaptureCodes() {
		c := services.NewCaptureNotifier(logger)
		return c, c, nil
	}
	tpl, err := services.LoadEmailTemplate(cfg.Email.Template)
	if err != nil {
		return nil, nil, err
	}
	return services.NewEmailNotifier(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
		tpl,
	), nil, nil
}

// newDenylist connects to Redis when addr is set. Without it tokens cannot be revoked.
func newDenylist(ctx context.Context, addr string) (services.Denylist, func(), error) {
	if addr == "" {
		return nil, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return services.NewRedisDenylist(rdb), func() { _ = rdb.Close() }, nil
}

func newAlerter(cfg config.TelegramConfig) (services.Alerter, error) {
	if cfg.BotToken == "" {
		return nil, nil
	}
	a, err := services.NewTelegramAlerter(cfg.BotToken, cfg.AlertChatID, "")
	if err != nil {
		return nil, err
	}
	return a, nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-User-Id")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
