package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"insureportal-backend/portal-service/middleware"
	"insureportal-backend/portal-service/services"
)

type AuthHandler struct {
	auth          *services.AuthService
	secureCookies bool
}

func NewAuthHandler(auth *services.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookies: secureCookies}
}

// POST /api/auth/login
// @Summary Log in
// @Description Admins log in with the access key, clients with full name and date of birth. Unknown clients are registered on first login.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body services.LoginRequest true "Login credentials"
// @Success 200 {object} services.LoginResult "Session token and user"
// @Failure 400 {object} handlers.ErrorResponse "Missing fields or unknown login type"
// @Failure 401 {object} handlers.ErrorResponse "Invalid access key"
// @Failure 429 {object} handlers.ErrorResponse "Too many login attempts"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, result.Token, maxAge, "/", "", h.secureCookies, true)

	c.JSON(http.StatusOK, result)
}

// POST /api/auth/register
// @Summary Register
// @Description Same as login; kept for older clients.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body services.LoginRequest true "Login credentials"
// @Success 200 {object} services.LoginResult
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	h.Login(c)
}

// POST /api/auth/verify
// @Summary Verify magic link
// @Description Magic link login was removed.
// @Tags auth
// @Produce json
// @Failure 410 {object} handlers.ErrorResponse
// @Router /auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	c.JSON(http.StatusGone, gin.H{"error": "Magic link login is deprecated"})
}

// POST /api/auth/logout
// @Summary Log out
// @Description Clears the session cookie. Bearer tokens stay valid until they expire.
// @Tags auth
// @Produce json
// @Success 200 {object} handlers.MessageResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GET /api/auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} handlers.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
