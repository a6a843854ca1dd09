package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"septic-booking-server/models"
	"septic-booking-server/services"
)

const (
	userKey   = "user"
	userIDKey = "user_id"
)

// Auth resolves the caller from a bearer token, the session cookie or, for
// websocket upgrades, a token query parameter.
type Auth struct {
	db         *gorm.DB
	jwt        *services.JWTService
	cookieName string
}

func NewAuth(db *gorm.DB, jwt *services.JWTService, cookieName string) *Auth {
	return &Auth{db: db, jwt: jwt, cookieName: cookieName}
}

// Required rejects requests without a valid token for an active user.
func (a *Auth) Required() gin.HandlerFunc {
	return a.authenticate(false)
}

// WebSocket is Required plus the ?token= fallback browsers need for upgrades.
func (a *Auth) WebSocket() gin.HandlerFunc {
	return a.authenticate(true)
}

func (a *Auth) authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := a.extractToken(c, allowQuery)
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := a.jwt.ValidateAccessToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}

		var user models.User
		if err := a.db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			abort(c, http.StatusUnauthorized, "User associated with token not found")
			return
		}
		if !user.IsActive {
			abort(c, http.StatusUnauthorized, "User account is deactivated")
			return
		}

		c.Set(userKey, &user)
		c.Set(userIDKey, user.ID)
		c.Next()
	}
}

func (a *Auth) extractToken(c *gin.Context, allowQuery bool) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if a.cookieName != "" {
		if cookie, err := c.Cookie(a.cookieName); err == nil && cookie != "" {
			return cookie
		}
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

// RequireRoles lets through only users holding one of roles. It must run
// after Required.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "You do not have permission to perform this action")
	}
}

// CurrentUser returns the user stored by the auth middleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
