package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/procurahq/license-api/internal/domain/account"
	"github.com/procurahq/license-api/internal/ierr"
	"go.uber.org/zap"
)

// RequireRoles is the single role gate for administrative operations: it
// rejects callers outside the allowed set before any storage is touched.
func RequireRoles(logger *zap.Logger, roles ...account.Role) gin.HandlerFunc {
	log := logger.Named("RoleGate")
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			_ = c.Error(fmt.Errorf("%w: authentication required", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		log.Info("Role gate denied request",
			zap.String("subject", claims.UserID.String()),
			zap.String("role", string(claims.Role)),
			zap.String("path", c.FullPath()),
		)
		_ = c.Error(fmt.Errorf("%w: %s access required", ierr.ErrForbidden, allowedRolesLabel(roles)))
		c.Abort()
	}
}

func allowedRolesLabel(roles []account.Role) string {
	label := ""
	for i, role := range roles {
		if i > 0 {
			label += " or "
		}
		label += string(role)
	}
	return label
}
