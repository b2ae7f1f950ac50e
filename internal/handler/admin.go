package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/procurahq/license-api/internal/handler/dto"
	"github.com/procurahq/license-api/internal/handler/middleware"
	"github.com/procurahq/license-api/internal/ierr"
	"github.com/procurahq/license-api/internal/service"
	"go.uber.org/zap"
)

type AdminHandler struct {
	admins   *service.AdminService
	licenses *service.LicenseService
	logger   *zap.Logger
}

func NewAdminHandler(admins *service.AdminService, licenses *service.LicenseService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admins:   admins,
		licenses: licenses,
		logger:   logger.Named("AdminHandler"),
	}
}

func (h *AdminHandler) Create(c *gin.Context) {
	var req dto.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create admin request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	rec, err := h.admins.CreateAdmin(c.Request.Context(), service.CreateAdminInput{
		Email:             req.Email,
		Password:          req.Password,
		StartDate:         req.StartDate,
		ExpiryDate:        req.ExpiryDate,
		LicensePeriodDays: req.LicensePeriodDays,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("Admin account created", zap.String("email", rec.Account.Email))
	c.JSON(http.StatusCreated, gin.H{
		"status":  true,
		"message": "Admin created successfully",
		"admin":   dto.NewAdminResponse(rec),
	})
}

func (h *AdminHandler) List(c *gin.Context) {
	records, err := h.admins.ListAdmins(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	admins := make([]*dto.AdminResponse, 0, len(records))
	for _, rec := range records {
		admins = append(admins, dto.NewAdminResponse(rec))
	}
	c.JSON(http.StatusOK, dto.AdminListResponse{
		Status:  true,
		Data:    admins,
		Message: "Admins retrieved successfully",
	})
}

func (h *AdminHandler) Toggle(c *gin.Context) {
	adminID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.logger.Warn("Invalid admin ID format", zap.String("id_param", c.Param("id")))
		_ = c.Error(fmt.Errorf("%w: valid admin ID is required", ierr.ErrValidation))
		return
	}

	isActive, err := h.admins.ToggleAdmin(c.Request.Context(), adminID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	message := "Admin deactivated successfully"
	if isActive {
		message = "Admin activated successfully"
	}
	c.JSON(http.StatusOK, dto.ToggleAdminResponse{Status: true, IsActive: isActive, Message: message})
}

func (h *AdminHandler) Renew(c *gin.Context) {
	adminID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.logger.Warn("Invalid admin ID format", zap.String("id_param", c.Param("id")))
		_ = c.Error(fmt.Errorf("%w: valid admin ID is required", ierr.ErrValidation))
		return
	}

	var req dto.RenewLicenseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("Failed to bind renew request", zap.Error(err))
			_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
			return
		}
	}

	newExpiry, err := h.licenses.RenewForAdmin(c.Request.Context(), adminID, req.ExpiryDate, req.ExtendDays)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ExpiryResponse{
		Status:     true,
		Message:    "License renewed successfully",
		ExpiryDate: &newExpiry,
	})
}

func (h *AdminHandler) UpdateExpiry(c *gin.Context) {
	adminID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.logger.Warn("Invalid admin ID format", zap.String("id_param", c.Param("id")))
		_ = c.Error(fmt.Errorf("%w: valid admin ID is required", ierr.ErrValidation))
		return
	}

	var req dto.UpdateExpiryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("Failed to bind expiry update request", zap.Error(err))
			_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
			return
		}
	}

	expiry, err := h.admins.UpdateExpiryForAdmin(c.Request.Context(), adminID, req.ExpiryDate)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.ExpiryResponse{Status: true, Message: "Expiry date updated successfully"}
	if expiry.Valid {
		resp.ExpiryDate = &expiry.Time
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) Expiring(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			_ = c.Error(fmt.Errorf("%w: days must be a positive integer", ierr.ErrValidation))
			return
		}
		days = parsed
	}

	expiring, err := h.licenses.ExpiringLicenses(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ExpiringLicensesResponse{
		Status:  true,
		Data:    expiring,
		Message: "Expiring licenses retrieved successfully",
	})
}

// MyData returns the calling admin's own account and license snapshot.
func (h *AdminHandler) MyData(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		_ = c.Error(fmt.Errorf("%w: authentication required", ierr.ErrUnauthorized))
		return
	}

	rec, err := h.admins.MyData(c.Request.Context(), claims.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.AdminDataResponse{
		Status:  true,
		Data:    dto.NewAdminResponse(rec),
		Message: "Admin data retrieved successfully",
	})
}
