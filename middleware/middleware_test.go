package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"septic-booking-server/config"
	"septic-booking-server/database"
	"septic-booking-server/models"
	"septic-booking-server/services"
	"septic-booking-server/utils"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	jwtService := services.NewJWTService(db, config.JWTConfig{Secret: testSecret, ExpiryHours: 1}, zerolog.Nop())
	auth := NewAuth(db, jwtService, "token")

	router := gin.New()
	whoami := func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "user_id": c.GetUint("user_id")})
	}
	router.GET("/me", auth.Required(), whoami)
	router.GET("/admin", auth.Required(), RequireRoles(models.RoleAdmin), whoami)
	router.GET("/ws", auth.WebSocket(), whoami)
	return router, db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) (models.User, string) {
	t.Helper()
	user := models.User{FullName: email, Email: email, PasswordHash: "x", Role: role, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	token, err := utils.GenerateToken(testSecret, time.Hour, user.ID, string(role))
	require.NoError(t, err)
	return user, token
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthTokenSources(t *testing.T) {
	router, db := newAuthRouter(t)
	_, token := seedUser(t, db, "c@example.com", models.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	assert.Equal(t, http.StatusOK, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	assert.Equal(t, http.StatusOK, serve(router, req).Code)
}

func TestAuthRejectsBadTokensAndInactiveUsers(t *testing.T) {
	router, db := newAuthRouter(t)
	user, token := seedUser(t, db, "c@example.com", models.RoleCustomer)

	forged, err := utils.GenerateToken("other-secret", time.Hour, user.ID, "admin")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	ghost, err := utils.GenerateToken(testSecret, time.Hour, 999, "customer")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+ghost)
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	require.NoError(t, db.Model(&user).Update("is_active", false).Error)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(router, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "deactivated")
}

func TestRequireRolesUsesStoredRole(t *testing.T) {
	router, db := newAuthRouter(t)
	user, _ := seedUser(t, db, "c@example.com", models.RoleCustomer)

	// The claim says admin but the stored account is a customer.
	elevated, err := utils.GenerateToken(testSecret, time.Hour, user.ID, "admin")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+elevated)
	assert.Equal(t, http.StatusForbidden, serve(router, req).Code)

	_, adminToken := seedUser(t, db, "a@example.com", models.RoleAdmin)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, serve(router, req).Code)
}

func TestRateLimitPerRouteAndIP(t *testing.T) {
	limiter := NewRateLimiter()
	router := gin.New()
	router.Use(limiter.RateLimit(zerolog.Nop()))
	router.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	var codes []int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		codes = append(codes, serve(router, req).Code)
	}
	assert.Equal(t, []int{200, 200, 200, 200, 200, 429}, codes)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, serve(router, req).Code)

	limiter.Cleanup(0)
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, http.StatusOK, serve(router, req).Code)
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeaders(), CORS([]string{"https://app.example"}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example")
	w := serve(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, serve(router, req).Code)
}

func TestBodyLimit(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimit(8))
	router.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("0123456789"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("0123"))
	assert.Equal(t, http.StatusOK, serve(router, req).Code)
}

func TestRecoveryAnswersJSON(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()), RequestLogger(zerolog.Nop()), Metrics())
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}
