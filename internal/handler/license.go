package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/procurahq/license-api/internal/handler/dto"
	"github.com/procurahq/license-api/internal/handler/middleware"
	"github.com/procurahq/license-api/internal/ierr"
	"github.com/procurahq/license-api/internal/service"
	"go.uber.org/zap"
)

type LicenseHandler struct {
	service *service.LicenseService
	logger  *zap.Logger
}

func NewLicenseHandler(service *service.LicenseService, logger *zap.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.Named("LicenseHandler"),
	}
}

func (h *LicenseHandler) Activate(c *gin.Context) {
	var req dto.ActivateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind activation request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: license key is required", ierr.ErrValidation))
		return
	}

	claims := middleware.GetClaims(c)
	if claims == nil {
		_ = c.Error(fmt.Errorf("%w: authentication required", ierr.ErrUnauthorized))
		return
	}

	result, err := h.service.Activate(c.Request.Context(), claims, req.LicenseKey)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: true, Message: result.Message})
}

func (h *LicenseHandler) Validate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		_ = c.Error(fmt.Errorf("%w: authentication required", ierr.ErrUnauthorized))
		return
	}

	result, err := h.service.Validate(c.Request.Context(), claims)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ValidationResponse{
		Status:  true,
		Valid:   result.Valid,
		Message: result.Message,
	})
}

// Verify serves third-party software checking a bare key; it is the only
// unauthenticated license endpoint and answers 200 even for invalid keys.
func (h *LicenseHandler) Verify(c *gin.Context) {
	var req dto.VerifyLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind verify request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: license key is required", ierr.ErrValidation))
		return
	}

	result, err := h.service.Verify(c.Request.Context(), req.LicenseKey)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.VerifyResponse{Valid: result.Valid, Message: result.Message})
}

func (h *LicenseHandler) Generate(c *gin.Context) {
	var req dto.GenerateLicenseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("Failed to bind generate request", zap.Error(err))
			_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
			return
		}
	}

	lic, err := h.service.Generate(c.Request.Context(), req.ExpiryDate)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.GenerateLicenseResponse{
		Status:     true,
		LicenseKey: lic.LicenseKey,
		Message:    "License key generated successfully",
	}
	if lic.ExpiryDate.Valid {
		resp.ExpiryDate = &lic.ExpiryDate.Time
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *LicenseHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		_ = c.Error(fmt.Errorf("%w: authentication required", ierr.ErrUnauthorized))
		return
	}

	licenses, err := h.service.ListLicenses(c.Request.Context(), claims)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLicenseListResponse(licenses))
}

func (h *LicenseHandler) Toggle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.logger.Warn("Invalid license ID format", zap.String("id_param", c.Param("id")))
		_ = c.Error(fmt.Errorf("%w: valid license ID is required", ierr.ErrValidation))
		return
	}

	isActive, err := h.service.ToggleActive(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	message := "License deactivated successfully"
	if isActive {
		message = "License activated successfully"
	}
	c.JSON(http.StatusOK, dto.ToggleLicenseResponse{Status: true, IsActive: isActive, Message: message})
}

func (h *LicenseHandler) UpdateExpiry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.logger.Warn("Invalid license ID format", zap.String("id_param", c.Param("id")))
		_ = c.Error(fmt.Errorf("%w: valid license ID is required", ierr.ErrValidation))
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

	expiry, err := h.service.UpdateExpiry(c.Request.Context(), id, req.ExpiryDate)
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
