package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sportperformance/academy-api/internal/auth"
	errs "github.com/sportperformance/academy-api/pkg/errors"
	"github.com/sportperformance/academy-api/pkg/response"
)

// principalKey is the gin context key under which the authenticated
// principal is stored.
const principalKey = "auth.principal"

// Auth validates the bearer token and its backing session, then attaches the
// authenticated principal to the request context. Tokens without a live
// session row are rejected even when the signature is still valid.
func Auth(tokens *auth.JWTService, sessions *auth.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.Error(c, errs.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.Error(c, errs.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, err := sessions.Validate(c.Request.Context(), claims.ID); err != nil {
			if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionExpired) {
				response.Error(c, errs.ErrUnauthorized)
			} else {
				response.Error(c, errs.FromError(err))
			}
			c.Abort()
			return
		}

		c.Set(principalKey, auth.Principal{
			UserID:        claims.UserID,
			UserNumber:    claims.UserNumber,
			Email:         claims.Email,
			AcademyNumber: claims.AcademyNumber,
			Role:          claims.Role,
		})
		c.Next()
	}
}

// PrincipalFromContext returns the principal attached by Auth.
func PrincipalFromContext(c *gin.Context) (auth.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}

	principal, ok := value.(auth.Principal)
	return principal, ok
}
