package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/models"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

// RequireRoles admits only actors holding one of roles. Tenant checks stay in the
// services; this is a coarse route gate.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[actor.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminGate guards the admin surface: superusers only, and every refusal is logged.
func AdminGate(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if actor.Role != models.RoleSuperuser {
			logger.Warn("admin access denied",
				zap.String("user_id", actor.ID),
				zap.String("role", string(actor.Role)),
				zap.String("path", c.Request.URL.Path))
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin access requires a superuser"))
			c.Abort()
			return
		}
		c.Next()
	}
}
