package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gryadka/backend-go/internal/config"
	"github.com/gryadka/backend-go/internal/database/service"
	"github.com/gryadka/backend-go/internal/middleware"
)

const maxDeviceInfoLength = 255

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	service service.AuthService
	cookie  cookieSettings
	logger  *slog.Logger
}

type cookieSettings struct {
	name     string
	path     string
	secure   bool
	sameSite http.SameSite
	maxAge   int
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(service service.AuthService, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookie: cookieSettings{
			name:     cfg.RefreshCookieName,
			path:     cfg.RefreshCookiePath,
			secure:   cfg.RefreshCookieSecure,
			sameSite: parseSameSite(cfg.RefreshCookieSameSite),
			maxAge:   int(cfg.RefreshTokenExpiration / time.Second),
		},
		logger: logger,
	}
}

// Request/Response DTOs
type RegisterRequest struct {
	Email      string  `json:"email" binding:"required,email,max=320"`
	Password   string  `json:"password" binding:"required,max=128"`
	FirstName  string  `json:"first_name" binding:"required,max=100"`
	LastName   string  `json:"last_name" binding:"required,max=100"`
	MiddleName *string `json:"middle_name" binding:"omitempty,max=100"`
	Role       string  `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (r RegisterRequest) toNewUser() service.NewUser {
	return service.NewUser{
		Email:      r.Email,
		Password:   r.Password,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		MiddleName: r.MiddleName,
		Role:       r.Role,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("⚠️ [AuthHandler] Invalid registration request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Email, password, first_name and last_name required."})
		return
	}

	user, err := h.service.Register(c.Request.Context(), req.toNewUser())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login handles POST /auth/login. The refresh secret is only sent as an
// HTTP-only cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("⚠️ [AuthHandler] Invalid login request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Email and password required."})
		return
	}

	_, tokens, err := h.service.Login(c.Request.Context(), req.Email, req.Password, deviceInfo(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse(tokens))
}

// Refresh handles POST /auth/refresh. The cookie wins; a JSON body is read
// only when no cookie was sent.
func (h *AuthHandler) Refresh(c *gin.Context) {
	secret, ok := h.presentedSecret(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token missing"})
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), secret)
	if err != nil {
		h.clearRefreshCookie(c)
		h.handleServiceError(c, err)
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse(tokens))
}

// Logout handles POST /auth/logout. It always succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	if secret, ok := h.presentedSecret(c); ok {
		if err := h.service.Logout(c.Request.Context(), secret); err != nil {
			h.logger.Error("❌ [AuthHandler] Failed to revoke refresh token on logout", "error", err)
		}
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// LogoutAll handles POST /auth/logout-all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.service.LogoutAll(c.Request.Context(), identity.UserID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out from all sessions"})
}

func (h *AuthHandler) presentedSecret(c *gin.Context) (string, bool) {
	if secret, err := c.Cookie(h.cookie.name); err == nil && secret != "" {
		return secret, true
	}

	if c.Request.ContentLength == 0 {
		return "", false
	}
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", false
	}
	return req.RefreshToken, true
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, secret string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.name,
		Value:    secret,
		Path:     h.cookie.path,
		MaxAge:   h.cookie.maxAge,
		HttpOnly: true,
		Secure:   h.cookie.secure,
		SameSite: h.cookie.sameSite,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.name,
		Value:    "",
		Path:     h.cookie.path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.secure,
		SameSite: h.cookie.sameSite,
	})
}

func tokenResponse(tokens *service.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken: tokens.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   tokens.ExpiresIn,
	}
}

func deviceInfo(c *gin.Context) *string {
	ua := c.GetHeader("User-Agent")
	if ua == "" {
		return nil
	}
	if len(ua) > maxDeviceInfoLength {
		ua = ua[:maxDeviceInfoLength]
	}
	return &ua
}

func parseSameSite(value string) http.SameSite {
	switch value {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// handleServiceError maps service errors to HTTP responses
func (h *AuthHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
	case errors.Is(err, service.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
	case errors.Is(err, service.ErrPasswordTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
	case errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role. Valid values are: consumer, farmer"})
	case errors.Is(err, service.ErrAdminRoleForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin accounts cannot be registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, service.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
	case errors.Is(err, service.ErrRefreshTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired"})
	case errors.Is(err, service.ErrRefreshTokenReused):
		c.JSON(http.StatusForbidden, gin.H{"error": "Refresh token is no longer valid, re-authentication required"})
	default:
		h.logger.Error("❌ [AuthHandler] Internal server error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
