package license

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	// StatusUnused marks a generated key that no account has claimed yet.
	StatusUnused Status = "unused"
	// StatusActive marks a key bound to an admin account.
	StatusActive Status = "active"
)

type License struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	LicenseKey    string         `db:"license_key" json:"license_key"`
	AdminID       uuid.NullUUID  `db:"admin_id" json:"admin_id,omitempty"`
	AssignedEmail sql.NullString `db:"assigned_email" json:"assigned_email,omitempty"`
	Status        Status         `db:"status" json:"status"`
	IsActive      bool           `db:"is_active" json:"is_active"`
	ExpiryDate    sql.NullTime   `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the license has an expiry date strictly in the past.
// A license without an expiry date never expires.
func (l *License) Expired(now time.Time) bool {
	return l.ExpiryDate.Valid && now.After(l.ExpiryDate.Time)
}

// Usable reports whether the license currently grants access: the active flag
// is set and the expiry date, if any, has not passed.
func (l *License) Usable(now time.Time) bool {
	return l.IsActive && !l.Expired(now)
}

// OwnedBy reports whether the license has been assigned to the given account.
func (l *License) OwnedBy(adminID uuid.UUID) bool {
	return l.AdminID.Valid && l.AdminID.UUID == adminID
}

// ExpiringLicense is a reporting row for licenses approaching their expiry.
type ExpiringLicense struct {
	AdminID       uuid.UUID `db:"admin_id" json:"admin_id"`
	AdminEmail    string    `db:"admin_email" json:"admin_email"`
	LicenseID     uuid.UUID `db:"license_id" json:"license_id"`
	LicenseKey    string    `db:"license_key" json:"license_key"`
	ExpiryDate    time.Time `db:"expiry_date" json:"expiry_date"`
	DaysRemaining int       `db:"days_remaining" json:"days_remaining"`
}

// Summary aggregates license counts for the dashboard.
type Summary struct {
	Total        int64
	Unused       int64
	Assigned     int64
	Inactive     int64
	ExpiringSoon int64
	NextToExpire *License
}
