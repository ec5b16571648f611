package api

import (
	"github.com/gin-gonic/gin"

	"github.com/sportperformance/academy-api/internal/handlers"
	"github.com/sportperformance/academy-api/internal/middleware"
)

func registerAcademyRoutes(v1 *gin.RouterGroup, deps Dependencies) {
	h := handlers.NewAcademyHandler(deps.Academies)

	// Open tenant bootstrap, throttled at the edge.
	v1.POST("/academies", middleware.RateLimit(deps.RateStore, deps.RateLimit), h.Create)

	v1.GET("/academies/me", middleware.Auth(deps.Tokens, deps.Sessions), h.Me)
}
