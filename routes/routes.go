package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"septic-booking-server/config"
	"septic-booking-server/middleware"
	"septic-booking-server/models"
	"septic-booking-server/services"
	ws "septic-booking-server/websocket"
)

const maxBodyBytes = 10 << 20

// Deps are the collaborators handlers need.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Log      zerolog.Logger
	Bookings *services.BookingService
	Slots    *services.SlotCalculator
	Tracker  *services.AvailabilityTracker
	Users    *services.UserService
	JWT      *services.JWTService
	Exporter *services.BookingExporter
	Hub      *ws.Hub
	Limiter  *middleware.RateLimiter
	// Pingers report dependency health on /health, keyed by name.
	Pingers map[string]func(context.Context) error
}

type handler struct {
	Deps
	upgrader gorillaws.Upgrader
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	h := &handler{Deps: d, upgrader: ws.NewUpgrader(d.Config.Server.AllowedOrigins)}

	router := gin.New()
	router.RedirectTrailingSlash = false

	router.Use(middleware.Recovery(d.Log))
	router.Use(middleware.RequestLogger(d.Log))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(d.Config.Server.AllowedOrigins))
	router.Use(middleware.BodyLimit(maxBodyBytes))
	if d.Config.Metrics.Enabled {
		router.Use(middleware.Metrics())
		router.GET(d.Config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	if d.Limiter != nil {
		router.Use(d.Limiter.RateLimit(d.Log))
	}

	router.GET("/health", h.health)

	storage := d.Config.Storage
	if storage.Driver == "local" && strings.HasPrefix(storage.PublicBaseURL, "/") {
		router.Static(storage.PublicBaseURL, storage.UploadDir)
	}

	auth := middleware.NewAuth(d.DB, d.JWT, d.Config.JWT.CookieName)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)
	admin := middleware.RequireRoles(models.RoleAdmin)
	customer := middleware.RequireRoles(models.RoleCustomer)
	technician := middleware.RequireRoles(models.RoleTechnician)

	router.GET("/ws", auth.WebSocket(), h.serveWebSocket)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/logout", h.logout)
		authGroup.GET("/me", auth.Required(), h.me)
	}

	book := router.Group("/book", auth.Required())
	{
		book.GET("/available-time", h.availableTime)

		book.POST("", customer, h.createBooking)
		book.GET("/my", customer, h.myBookings)
		book.PUT("/cancel/:id", customer, h.customerCancel)

		book.GET("/technician", technician, h.technicianBookings)
		book.PUT("/technician/respond/:id", technician, h.technicianRespond)
		book.PUT("/technician/update/:id", technician, h.technicianUpdate)
		book.PUT("/technician/service/:id", technician, h.technicianChangeService)
		book.POST("/technician/proof/:id", technician, h.technicianProof)
		book.PUT("/technician/cancel/:id", technician, h.technicianCancel)

		book.GET("", staff, h.listBookings)
		book.GET("/export", admin, h.exportBookings)
		book.PUT("/assign/:id", staff, h.assignTechnician)
		book.PUT("/:id/payment", staff, h.recordPayment)
		book.PUT("/:id", admin, h.adminSetStatus)
		book.GET("/:id", h.getBooking)
	}

	serviceTypes := router.Group("/service-types")
	{
		serviceTypes.GET("", h.listServiceTypes)
		serviceTypes.GET("/all", auth.Required(), staff, h.listAllServiceTypes)
		serviceTypes.GET("/:id", h.getServiceType)
		serviceTypes.POST("", auth.Required(), admin, h.createServiceType)
		serviceTypes.PUT("/:id", auth.Required(), admin, h.updateServiceType)
		serviceTypes.DELETE("/:id", auth.Required(), admin, h.deleteServiceType)
	}

	pages := router.Group("/pages")
	{
		pages.GET("/:slug", h.getPage)
		pages.PUT("/:slug", auth.Required(), admin, h.upsertPage)
	}

	users := router.Group("/users", auth.Required(), admin)
	{
		users.GET("", h.listUsers)
		users.POST("", h.createUser)
		users.PUT("/:id/status", h.setUserActive)
	}

	technicians := router.Group("/technicians", auth.Required(), staff)
	{
		technicians.GET("", h.listTechnicians)
		technicians.PUT("/:id/status", admin, h.setTechnicianStatus)
	}

	return router
}

func (h *handler) health(c *gin.Context) {
	checks := gin.H{}
	healthy := true
	for name, ping := range h.Pingers {
		if err := ping(c.Request.Context()); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "status": "degraded", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok", "checks": checks})
}

func (h *handler) serveWebSocket(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	if err := ws.ServeWebSocket(h.Hub, h.upgrader, c.Writer, c.Request, user.ID, string(user.Role)); err != nil {
		h.Log.Debug().Err(err).Uint("user_id", user.ID).Msg("websocket upgrade failed")
	}
}
