package api

import (
	"github.com/gin-gonic/gin"

	"github.com/sportperformance/academy-api/internal/handlers"
	"github.com/sportperformance/academy-api/internal/middleware"
)

func registerAuthRoutes(v1 *gin.RouterGroup, deps Dependencies) {
	h := handlers.NewAuthHandler(deps.Otp)

	otp := v1.Group("/auth/otp", middleware.RateLimit(deps.RateStore, deps.RateLimit))
	otp.POST("/request", h.RequestOtp)
	otp.POST("/verify", h.VerifyOtp)

	v1.GET("/me", middleware.Auth(deps.Tokens, deps.Sessions), h.Me)
}
