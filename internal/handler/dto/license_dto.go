package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/procurahq/license-api/internal/domain/license"
)

type ActivateLicenseRequest struct {
	LicenseKey string `json:"licenseKey" binding:"required"`
}

type VerifyLicenseRequest struct {
	LicenseKey string `json:"licenseKey" binding:"required"`
}

type GenerateLicenseRequest struct {
	ExpiryDate string `json:"expiryDate"`
}

type UpdateExpiryRequest struct {
	ExpiryDate string `json:"expiryDate"`
}

type RenewLicenseRequest struct {
	ExpiryDate string `json:"expiryDate"`
	ExtendDays int    `json:"extendDays" binding:"omitempty,gt=0"`
}

type StatusResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

type ValidationResponse struct {
	Status  bool   `json:"status"`
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

type VerifyResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

type GenerateLicenseResponse struct {
	Status     bool       `json:"status"`
	LicenseKey string     `json:"license_key"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Message    string     `json:"message"`
}

type ToggleLicenseResponse struct {
	Status   bool   `json:"status"`
	IsActive bool   `json:"is_active"`
	Message  string `json:"message"`
}

type ExpiryResponse struct {
	Status     bool       `json:"status"`
	ExpiryDate *time.Time `json:"expiry_date"`
	Message    string     `json:"message"`
}

type LicenseResponse struct {
	ID            uuid.UUID      `json:"id"`
	LicenseKey    string         `json:"license_key"`
	AdminID       *uuid.UUID     `json:"admin_id,omitempty"`
	AssignedEmail *string        `json:"assigned_email,omitempty"`
	Status        license.Status `json:"status"`
	IsActive      bool           `json:"is_active"`
	ExpiryDate    *time.Time     `json:"expiry_date,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func NewLicenseResponse(lic *license.License) *LicenseResponse {
	resp := &LicenseResponse{
		ID:         lic.ID,
		LicenseKey: lic.LicenseKey,
		Status:     lic.Status,
		IsActive:   lic.IsActive,
		CreatedAt:  lic.CreatedAt,
		UpdatedAt:  lic.UpdatedAt,
	}
	if lic.AdminID.Valid {
		resp.AdminID = &lic.AdminID.UUID
	}
	if lic.AssignedEmail.Valid {
		resp.AssignedEmail = &lic.AssignedEmail.String
	}
	if lic.ExpiryDate.Valid {
		resp.ExpiryDate = &lic.ExpiryDate.Time
	}
	return resp
}

type LicenseListResponse struct {
	Status  bool               `json:"status"`
	Data    []*LicenseResponse `json:"data"`
	Message string             `json:"message"`
}

func NewLicenseListResponse(licenses []*license.License) *LicenseListResponse {
	data := make([]*LicenseResponse, len(licenses))
	for i, lic := range licenses {
		data[i] = NewLicenseResponse(lic)
	}
	return &LicenseListResponse{
		Status:  true,
		Data:    data,
		Message: "Licenses retrieved successfully",
	}
}
