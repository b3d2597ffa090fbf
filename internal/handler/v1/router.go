package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Services struct {
	Auth         *service.AuthService
	Directory    *service.DirectoryService
	Availability *service.AvailabilityService
	Bookings     *service.BookingService
	Feedback     *service.FeedbackService
}

type RouterConfig struct {
	JWT       *auth.JWTManager
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
	Log       *zap.Logger
}

type Handler struct {
	svc Services
	log *zap.Logger
}

func NewRouter(svc Services, cfg RouterConfig) *gin.Engine {
	h := &Handler{svc: svc, log: cfg.Log}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(cfg.Log),
		middleware.Logger(cfg.Log),
		middleware.Metrics(cfg.Collector),
		middleware.CORS(cfg.CORS),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler(cfg.Gatherer)))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize))

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitPerMinute(cfg.RateLimit.AuthRequestsPerMinute))
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/refresh", h.refresh)
	}

	secured := api.Group("")
	secured.Use(middleware.Authenticate(cfg.JWT))
	{
		secured.GET("/me", h.profile)
		secured.PATCH("/me", h.updateProfile)
		secured.POST("/me/password", h.changePassword)

		secured.GET("/departments", h.departments)
		secured.GET("/doctors", h.searchDoctors)
		secured.GET("/doctors/:id", h.getDoctor)
		secured.GET("/doctors/:id/slots", h.daySlots)
		secured.GET("/doctors/:id/schedule",
			middleware.RequireRole(domain.RoleDoctor, domain.RoleAdmin), h.doctorSchedule)

		patientOnly := middleware.RequireRole(domain.RolePatient)
		staffOnly := middleware.RequireRole(domain.RoleDoctor, domain.RoleAdmin)

		secured.POST("/appointments", patientOnly, h.bookAppointment)
		secured.GET("/appointments", patientOnly, h.listAppointments)
		secured.GET("/appointments/:id", h.getAppointment)
		secured.PATCH("/appointments/:id", patientOnly, h.updateAppointment)
		secured.POST("/appointments/:id/confirm", staffOnly, h.confirmAppointment)
		secured.POST("/appointments/:id/complete", staffOnly, h.completeAppointment)

		secured.POST("/feedback", patientOnly, h.submitFeedback)
		secured.GET("/feedback", patientOnly, h.feedbackHistory)
		secured.PATCH("/feedback/:id", patientOnly, h.updateFeedback)
	}

	return r
}
