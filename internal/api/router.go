package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/sportperformance/academy-api/internal/auth"
	"github.com/sportperformance/academy-api/internal/handlers"
	"github.com/sportperformance/academy-api/internal/middleware"
	"github.com/sportperformance/academy-api/internal/services"
)

// Dependencies bundles everything the router needs.
type Dependencies struct {
	DB        *gorm.DB
	Tokens    *auth.JWTService
	Sessions  *auth.SessionService
	Otp       *services.OtpService
	Invites   *services.InviteService
	Academies *services.AcademyService
	RateStore middleware.RateStore
	RateLimit middleware.RateLimitConfig
}

// NewRouter assembles the HTTP surface.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.Metrics(),
	)

	router.GET("/health", handlers.NewHealthHandler(deps.DB).Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	registerAuthRoutes(v1, deps)
	registerInviteRoutes(v1, deps)
	registerAcademyRoutes(v1, deps)

	return router
}
