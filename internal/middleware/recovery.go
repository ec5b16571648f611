package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	errs "github.com/sportperformance/academy-api/pkg/errors"
	"github.com/sportperformance/academy-api/pkg/logger"
	"github.com/sportperformance/academy-api/pkg/response"
)

// Recovery converts panics into opaque 500 responses.
func Recovery() gin.HandlerFunc {
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				response.Error(c, errs.ErrInternalServer)
				c.Abort()
			}
		}()

		c.Next()
	}
}
