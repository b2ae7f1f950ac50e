package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeAdminCreated     = "admin_created"
	TypeLicenseActivated = "license_activated"
	TypeRenewalApproved  = "renewal_approved"
	TypeLicenseRenewed   = "license_renewed"
	TypeLicenseExpiring  = "license_expiring"
)

type Notification struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	Type             string        `db:"type" json:"type"`
	Message          string        `db:"message" json:"message"`
	TargetRole       string        `db:"target_role" json:"target_role"`
	TargetUserID     uuid.NullUUID `db:"target_user_id" json:"target_user_id,omitempty"`
	RelatedLicenseID uuid.NullUUID `db:"related_license_id" json:"related_license_id,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}
