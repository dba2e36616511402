package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"insureportal-backend/shared/database/models"
	applog "insureportal-backend/shared/logger"
	utils "insureportal-backend/shared/utils/auth"
	"insureportal-backend/shared/utils/permission"
)

const (
	identityKey = "identity"

	// TokenCookie is the cookie a browser session may carry the token in
	TokenCookie = "token"
)

// AuthMiddleware requires a valid session token in the Authorization header
// or the token cookie and stores the caller identity in the context.
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return authenticate(tokens, false)
}

// StreamAuthMiddleware also accepts ?token= since browsers cannot set
// headers on WebSocket handshakes.
func StreamAuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return authenticate(tokens, true)
}

func authenticate(tokens *utils.TokenManager, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractToken(c, allowQuery)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}

		identity, err := tokens.Identify(tokenString)
		if err != nil {
			applog.Debug().Err(err).Str("path", c.FullPath()).Msg("Rejected session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole only lets callers with one of the roles through
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := permission.RequireRole(GetIdentity(c), roles...); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// GetIdentity returns the caller set by AuthMiddleware, nil when absent
func GetIdentity(c *gin.Context) *utils.Identity {
	value, exists := c.Get(identityKey)
	if !exists {
		return nil
	}
	identity, _ := value.(*utils.Identity)
	return identity
}

// ExtractToken reads the bearer token, then the token cookie, then
// optionally the token query parameter.
func ExtractToken(c *gin.Context, allowQuery bool) string {
	if token := ExtractTokenFromHeader(c.Request); token != "" {
		return token
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

// ExtractTokenFromHeader extracts the token from the Authorization header
func ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	tokenParts := strings.Fields(authHeader)
	if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") {
		return ""
	}

	return tokenParts[1]
}
