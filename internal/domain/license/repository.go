package license

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository is the sole access path to license records. Lookups return
// (nil, nil) when no row matches; callers branch on emptiness.
type Repository interface {
	Create(ctx context.Context, lic *License) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*License, error)
	FindByKey(ctx context.Context, key string) (*License, error)
	FindByAdmin(ctx context.Context, adminID uuid.UUID) (*License, error)
	KeyExists(ctx context.Context, key string) (bool, error)

	List(ctx context.Context) ([]*License, error)
	ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]*License, error)

	// HasCurrentLicense reports whether the account already holds an assigned,
	// active-flagged license, matched by owner id or activation email.
	HasCurrentLicense(ctx context.Context, adminID uuid.UUID, email string) (bool, error)
	// HasUsableByAdmin reports whether the account holds a license that grants
	// access at the given instant.
	HasUsableByAdmin(ctx context.Context, adminID uuid.UUID, now time.Time) (bool, error)
	HasActiveByEmail(ctx context.Context, email string, now time.Time) (bool, error)

	// Claim atomically binds an unused, unowned key to an account. It returns
	// false when the key was not in a claimable state, which includes losing a
	// concurrent claim race.
	Claim(ctx context.Context, key string, adminID uuid.UUID, email string) (bool, error)
	// ReactivateForOwner re-arms a key already owned by the account. Returns
	// false when the key does not belong to the account.
	ReactivateForOwner(ctx context.Context, key string, adminID uuid.UUID, email string) (bool, error)

	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetExpiry(ctx context.Context, id uuid.UUID, expiry sql.NullTime) error
	// Renew sets a new expiry date and forces the license back into the
	// active, access-granting state.
	Renew(ctx context.Context, id uuid.UUID, expiry time.Time) error
	DeactivateByAdmin(ctx context.Context, adminID uuid.UUID) error

	ListExpiringWithin(ctx context.Context, days int) ([]*ExpiringLicense, error)
	Summarize(ctx context.Context, warningDays int) (*Summary, error)
}
