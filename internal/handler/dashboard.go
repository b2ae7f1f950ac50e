package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/procurahq/license-api/internal/handler/dto"
	"github.com/procurahq/license-api/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	licenses    *service.LicenseService
	warningDays int
	logger      *zap.Logger
}

func NewDashboardHandler(licenses *service.LicenseService, warningDays int, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		licenses:    licenses,
		warningDays: warningDays,
		logger:      logger.Named("DashboardHandler"),
	}
}

func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.licenses.DashboardSummary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.DashboardSummaryResponse{
		TotalLicenses: summary.Total,
		Unused:        summary.Unused,
		Assigned:      summary.Assigned,
		Inactive:      summary.Inactive,
		ExpiringSoon: dto.ExpiringSoonSummary{
			Count:      summary.ExpiringSoon,
			PeriodDays: h.warningDays,
		},
	}
	if summary.NextToExpire != nil && summary.NextToExpire.ExpiryDate.Valid {
		resp.ExpiringSoon.NextToExpire = &dto.LicenseInfo{
			LicenseKey: summary.NextToExpire.LicenseKey,
			ExpiresAt:  summary.NextToExpire.ExpiryDate.Time,
		}
	}
	c.JSON(http.StatusOK, resp)
}
