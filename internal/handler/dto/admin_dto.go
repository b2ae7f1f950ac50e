package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/procurahq/license-api/internal/domain/license"
	"github.com/procurahq/license-api/internal/service"
)

type CreateAdminRequest struct {
	Email             string `json:"email" binding:"required,email"`
	Password          string `json:"password" binding:"required,min=8"`
	StartDate         string `json:"startDate"`
	ExpiryDate        string `json:"expiryDate"`
	LicensePeriodDays int    `json:"licensePeriodDays" binding:"omitempty,gt=0"`
}

type AdminLicenseInfo struct {
	ID            uuid.UUID      `json:"id"`
	LicenseKey    string         `json:"license_key"`
	Status        license.Status `json:"status"`
	IsActive      bool           `json:"is_active"`
	ExpiryDate    *time.Time     `json:"expiry_date,omitempty"`
	DaysRemaining *int           `json:"days_remaining"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type AdminResponse struct {
	ID         uuid.UUID         `json:"id"`
	Email      string            `json:"email"`
	UserActive bool              `json:"user_active"`
	License    *AdminLicenseInfo `json:"license"`
}

func NewAdminResponse(rec *service.AdminRecord) *AdminResponse {
	resp := &AdminResponse{
		ID:         rec.Account.ID,
		Email:      rec.Account.Email,
		UserActive: rec.Account.IsActive,
	}
	if rec.License != nil {
		info := &AdminLicenseInfo{
			ID:            rec.License.ID,
			LicenseKey:    rec.License.LicenseKey,
			Status:        rec.License.Status,
			IsActive:      rec.License.IsActive,
			DaysRemaining: rec.DaysRemaining,
			CreatedAt:     rec.License.CreatedAt,
			UpdatedAt:     rec.License.UpdatedAt,
		}
		if rec.License.ExpiryDate.Valid {
			info.ExpiryDate = &rec.License.ExpiryDate.Time
		}
		resp.License = info
	}
	return resp
}

type AdminListResponse struct {
	Status  bool             `json:"status"`
	Data    []*AdminResponse `json:"data"`
	Message string           `json:"message"`
}

type AdminDataResponse struct {
	Status  bool           `json:"status"`
	Data    *AdminResponse `json:"data"`
	Message string         `json:"message"`
}

type ToggleAdminResponse struct {
	Status   bool   `json:"status"`
	IsActive bool   `json:"is_active"`
	Message  string `json:"message"`
}

type ExpiringLicensesResponse struct {
	Status  bool                       `json:"status"`
	Data    []*license.ExpiringLicense `json:"data"`
	Message string                     `json:"message"`
}
