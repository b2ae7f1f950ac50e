package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/procurahq/license-api/internal/domain/account"
	"github.com/procurahq/license-api/internal/ierr"
	"github.com/procurahq/license-api/internal/service"
	"go.uber.org/zap"
)

// RequireValidLicense guards admin-facing routes: superadmins pass through,
// admins must hold a license that currently grants access.
func RequireValidLicense(licenseService *service.LicenseService, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("LicenseCheck")
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			_ = c.Error(fmt.Errorf("%w: authentication required", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		if claims.Role != account.RoleAdmin {
			c.Next()
			return
		}

		ok, err := licenseService.HasUsableForAdmin(c.Request.Context(), claims.UserID)
		if err != nil {
			log.Error("Failed to check license for admin", zap.String("admin_id", claims.UserID.String()), zap.Error(err))
			_ = c.Error(ierr.ErrInternalServer)
			c.Abort()
			return
		}

		if !ok {
			log.Info("Admin without usable license rejected", zap.String("admin_id", claims.UserID.String()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"status":          false,
				"message":         "Valid license required. Your license may be expired or inactive.",
				"requiresLicense": true,
			})
			return
		}

		c.Next()
	}
}
