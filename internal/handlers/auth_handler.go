package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homesync/internal/middleware"
	"homesync/internal/models"
	"homesync/internal/services"
)

// DefaultCookieMaxAge is how long the browser keeps the token and userId cookies.
const DefaultCookieMaxAge = 90 * 24 * time.Hour

type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	auth    services.AuthService
	cookies CookieConfig
	logger  *slog.Logger
}

func NewAuthHandler(auth services.AuthService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	if cookies.MaxAge <= 0 {
		cookies.MaxAge = DefaultCookieMaxAge
	}
	return &AuthHandler{auth: auth, cookies: cookies, logger: logger}
}

// @Summary      Register an account
// @Description  Creates an unverified account and sends a 6-digit code to the email address
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "Email and/or mobile, password"
// @Success      201   {object}  models.AuthResponse
// @Failure      400   {object}  models.AuthResponse
// @Failure      409   {object}  models.AuthResponse
// @Failure      500   {object}  models.AuthResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Email/mobile and password are required.", err)
		return
	}
	res, err := h.auth.Register(c.Request.Context(), req.Email, req.Mobile, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.AuthResponse{
		Success: true,
		Message: "User registered successfully. A verification code has been sent.",
		UserID:  res.UserID,
		Token:   res.Token,
	})
}

// @Summary      Verify email
// @Description  Consumes a verification code, marks the email verified and sets the session cookies
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.VerifyRequest  true  "Email and code"
// @Success      200   {object}  models.AuthResponse
// @Failure      400   {object}  models.AuthResponse
// @Failure      404   {object}  models.AuthResponse
// @Failure      500   {object}  models.AuthResponse
// @Router       /api/auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Email and code are required.", err)
		return
	}
	res, err := h.auth.Verify(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.setSession(c, res.Token, res.UserID)
	c.JSON(http.StatusOK, models.AuthResponse{
		Success: true,
		Message: "Verification successful.",
		UserID:  res.UserID,
		Token:   res.Token,
	})
}

// @Summary      Resend verification code
// @Description  Issues an additional code; earlier codes stay valid until used or expired
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ResendRequest  true  "Email"
// @Success      200   {object}  models.AuthResponse
// @Failure      400   {object}  models.AuthResponse
// @Failure      404   {object}  models.AuthResponse
// @Failure      500   {object}  models.AuthResponse
// @Router       /api/auth/resend-otp [post]
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req models.ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Email is required.", err)
		return
	}
	if _, err := h.auth.ResendCode(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{Success: true, Message: "A new verification code has been sent."})
}

// @Summary      Log in
// @Description  Checks credentials of a verified account and sets the session cookies
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Email and password"
// @Success      200   {object}  models.AuthResponse
// @Failure      400   {object}  models.AuthResponse
// @Failure      401   {object}  models.AuthResponse
// @Failure      500   {object}  models.AuthResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Email and password are required.", err)
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.setSession(c, res.Token, res.UserID)
	c.JSON(http.StatusOK, models.AuthResponse{
		Success: true,
		Message: "Login successful.",
		UserID:  res.UserID,
		Token:   res.Token,
	})
}

// @Summary      Log out
// @Description  Clears the session cookies (and revokes the token when revocation is enabled), then redirects to /
// @Tags         Auth
// @Success      302
// @Router       /logout [get]
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := middleware.Credentials(c)
	if token != "" {
		h.auth.Logout(c.Request.Context(), token)
	}
	h.clearSession(c)

	status := http.StatusFound
	if c.Request.Method == http.MethodPost {
		status = http.StatusSeeOther
	}
	c.Redirect(status, "/")
}

// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  models.AuthResponse
// @Failure      401  {object}  models.AuthResponse
// @Router       /api/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, models.AuthResponse{Success: true, Message: "Authenticated.", UserID: middleware.UserID(c)})
}

func (h *AuthHandler) setSession(c *gin.Context, token, userID string) {
	maxAge := int(h.cookies.MaxAge / time.Second)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieToken, token, maxAge, "/", "", h.cookies.Secure, true)
	c.SetCookie(middleware.CookieUserID, userID, maxAge, "/", "", h.cookies.Secure, true)
}

func (h *AuthHandler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieToken, "", -1, "/", "", h.cookies.Secure, true)
	c.SetCookie(middleware.CookieUserID, "", -1, "/", "", h.cookies.Secure, true)
}

func (h *AuthHandler) badRequest(c *gin.Context, msg string, err error) {
	h.logger.DebugContext(c.Request.Context(), "bind json failed", "path", c.Request.URL.Path, "err", err)
	c.JSON(http.StatusBadRequest, models.AuthResponse{Message: msg})
}

// fail maps an auth error kind to its HTTP status. The message is already client safe.
func (h *AuthHandler) fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), models.AuthResponse{Message: messageFor(err)})
}
