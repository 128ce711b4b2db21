package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
	"github.com/noah-isme/sched-console/pkg/response"
)

// Operator roles allowed to change master data.
var EditorRoles = []models.OperatorRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleScheduler}

// RequireRoles lets the request through only for the listed operator roles.
// Routes mounted without JWT (auth disabled) pass unchecked.
func RequireRoles(roles ...models.OperatorRole) gin.HandlerFunc {
	allowed := make(map[models.OperatorRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			c.Next()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" cannot change master data"))
			c.Abort()
			return
		}
		c.Next()
	}
}
