package api

import (
	"github.com/gin-gonic/gin"

	"github.com/sportperformance/academy-api/internal/handlers"
	"github.com/sportperformance/academy-api/internal/middleware"
	"github.com/sportperformance/academy-api/internal/models"
)

func registerInviteRoutes(v1 *gin.RouterGroup, deps Dependencies) {
	h := handlers.NewInviteHandler(deps.Invites)

	// Redemption is public: the token itself is the credential.
	v1.GET("/invites/:token", h.Get)
	v1.POST("/invites/:token/accept",
		middleware.RateLimit(deps.RateStore, deps.RateLimit),
		h.Accept,
	)

	v1.POST("/invites",
		middleware.Auth(deps.Tokens, deps.Sessions),
		middleware.RequireRole(models.RoleAcademyAdmin),
		h.Create,
	)
}
