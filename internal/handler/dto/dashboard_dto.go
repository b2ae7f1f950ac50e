package dto

import (
	"time"
)

type DashboardSummaryResponse struct {
	TotalLicenses int64               `json:"totalLicenses"`
	Unused        int64               `json:"unused"`
	Assigned      int64               `json:"assigned"`
	Inactive      int64               `json:"inactive"`
	ExpiringSoon  ExpiringSoonSummary `json:"expiringSoon"`
}

type ExpiringSoonSummary struct {
	Count        int64        `json:"count"`
	PeriodDays   int          `json:"periodDays"`
	NextToExpire *LicenseInfo `json:"nextToExpire,omitempty"`
}

type LicenseInfo struct {
	LicenseKey string    `json:"licenseKey"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
