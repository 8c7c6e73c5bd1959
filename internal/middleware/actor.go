package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/models"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

// ContextActorKey is the gin context key storing the freshly loaded user.
const ContextActorKey = "actor"

type actorLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// LoadActor reloads the token's user on every request so role, tenant and active
// changes take effect without waiting for the token to expire.
func LoadActor(users actorLoader, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists"))
			} else {
				logger.Error("failed to load actor", zap.String("user_id", claims.UserID), zap.Error(err))
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account"))
			}
			c.Abort()
			return
		}
		if !user.Active {
			response.Error(c, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive"))
			c.Abort()
			return
		}
		user.ApplyRole()
		c.Set(ContextActorKey, user)
		c.Next()
	}
}

// Actor returns the user loaded by LoadActor, or nil.
func Actor(c *gin.Context) *models.User {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}
