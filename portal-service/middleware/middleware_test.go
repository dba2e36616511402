package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insureportal-backend/shared/database/models"
	utils "insureportal-backend/shared/utils/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func issueToken(t *testing.T, tokens *utils.TokenManager, role models.Role) (string, *models.User) {
	t.Helper()
	user := &models.User{ID: uuid.New(), FullName: "Test User", Role: role, OrganizationID: uuid.New()}
	token, _, err := tokens.Generate(user)
	require.NoError(t, err)
	return token, user
}

func protectedRouter(tokens *utils.TokenManager) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger())
	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetIdentity(c).UserID.String()})
	}
	router.GET("/private", AuthMiddleware(tokens), whoami)
	router.GET("/stream", StreamAuthMiddleware(tokens), whoami)
	router.GET("/admin", AuthMiddleware(tokens), RequireRole(models.RoleAdmin), whoami)
	return router
}

func TestAuthMiddleware(t *testing.T) {
	tokens := utils.NewTokenManager("middleware-secret", time.Hour)
	router := protectedRouter(tokens)
	token, user := issueToken(t, tokens, models.RoleClient)

	tests := []struct {
		name       string
		path       string
		prepare    func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{"no token", "/private", func(*http.Request) {}, http.StatusUnauthorized, "Access token required"},
		{"garbage token", "/private", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, "Invalid or expired token"},
		{"bearer header", "/private", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, user.ID.String()},
		{"lowercase scheme", "/private", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) }, http.StatusOK, user.ID.String()},
		{"cookie", "/private", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) }, http.StatusOK, user.ID.String()},
		{"query ignored on api", "/private?token=" + token, func(*http.Request) {}, http.StatusUnauthorized, "Access token required"},
		{"query accepted on stream", "/stream?token=" + token, func(*http.Request) {}, http.StatusOK, user.ID.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	tokens := utils.NewTokenManager("middleware-secret", time.Nanosecond)
	token, _ := issueToken(t, tokens, models.RoleClient)
	time.Sleep(time.Second)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protectedRouter(tokens).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	tokens := utils.NewTokenManager("middleware-secret", time.Hour)
	router := protectedRouter(tokens)

	clientToken, _ := issueToken(t, tokens, models.RoleClient)
	adminToken, _ := issueToken(t, tokens, models.RoleAdmin)

	for token, want := range map[string]int{clientToken: http.StatusForbidden, adminToken: http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
}

func TestRequestLogger_KeepsIncomingRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestLoginRateLimit(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)
	defer limiter.Stop()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	router := gin.New()
	router.POST("/login", limiter.LoginRateLimitMiddleware(RateLimitConfig{
		MaxRequests:   3,
		TimeWindow:    time.Minute,
		BlockDuration: 5 * time.Minute,
	}), func(c *gin.Context) { c.Status(http.StatusOK) })

	attempt := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, attempt())
	}
	assert.Equal(t, http.StatusTooManyRequests, attempt())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusTooManyRequests, attempt(), "still blocked")

	now = now.Add(4 * time.Minute)
	assert.Equal(t, http.StatusOK, attempt())
}

func TestLoginRateLimit_Disabled(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)
	defer limiter.Stop()

	router := gin.New()
	router.POST("/login", limiter.LoginRateLimitMiddleware(RateLimitConfig{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
