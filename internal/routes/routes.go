package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"homesync/internal/handlers"
	"homesync/internal/middleware"
)

const (
	publicEntry  = "/"
	landingPage  = "/dashboard"
	authAPIGroup = "/api/auth"
)

func SetupRoutes(
	r *gin.Engine,
	tokens middleware.TokenVerifier,
	authHandler *handlers.AuthHandler,
	pageHandler *handlers.PageHandler,
	healthHandler *handlers.HealthHandler,
	devHandler *handlers.DevHandler, // только вне production, может быть nil
	logger *slog.Logger,
) *gin.Engine {
	anonymous := middleware.RequireAnonymous(tokens, landingPage, logger)
	protected := middleware.RequireAuth(tokens, publicEntry, logger)

	// ---- auth API
	api := r.Group(authAPIGroup)
	{
		api.POST("/register", authHandler.Register)
		api.POST("/verify", authHandler.Verify)
		api.POST("/resend-otp", authHandler.ResendOTP)
		api.POST("/login", authHandler.Login)
		api.POST("/logout", authHandler.Logout)

		// the API is POST only; a browser landing here gets the 404 page
		api.GET("/", pageHandler.NotFound)
		api.GET("/:action", pageHandler.NotFound)
	}
	r.GET("/api/me", middleware.RequireAuthJSON(tokens, logger), authHandler.Me)
	r.GET("/logout", authHandler.Logout)

	// ---- pages
	r.GET("/", anonymous, pageHandler.Page("login.html"))
	r.GET("/register", anonymous, pageHandler.Page("register.html"))
	r.GET("/verify", anonymous, pageHandler.Page("verify.html"))
	r.GET("/dashboard", protected, pageHandler.Page("dashboard.html"))
	r.Static("/assets", pageHandler.AssetsDir())

	r.GET("/healthz", healthHandler.Check)

	if devHandler != nil {
		r.GET("/dev/otp", devHandler.LatestOTP)
	}

	r.NoRoute(pageHandler.NotFound)
	return r
}
