package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/procurahq/license-api/internal/domain/account"
	"github.com/procurahq/license-api/internal/domain/license"
)

type mockLicenseRepo struct {
	CreateFunc             func(ctx context.Context, lic *license.License) (uuid.UUID, error)
	FindByIDFunc           func(ctx context.Context, id uuid.UUID) (*license.License, error)
	FindByKeyFunc          func(ctx context.Context, key string) (*license.License, error)
	FindByAdminFunc        func(ctx context.Context, adminID uuid.UUID) (*license.License, error)
	KeyExistsFunc          func(ctx context.Context, key string) (bool, error)
	ListFunc               func(ctx context.Context) ([]*license.License, error)
	ListByAdminFunc        func(ctx context.Context, adminID uuid.UUID) ([]*license.License, error)
	HasCurrentLicenseFunc  func(ctx context.Context, adminID uuid.UUID, email string) (bool, error)
	HasUsableByAdminFunc   func(ctx context.Context, adminID uuid.UUID, now time.Time) (bool, error)
	HasActiveByEmailFunc   func(ctx context.Context, email string, now time.Time) (bool, error)
	ClaimFunc              func(ctx context.Context, key string, adminID uuid.UUID, email string) (bool, error)
	ReactivateForOwnerFunc func(ctx context.Context, key string, adminID uuid.UUID, email string) (bool, error)
	SetActiveFunc          func(ctx context.Context, id uuid.UUID, active bool) error
	SetExpiryFunc          func(ctx context.Context, id uuid.UUID, expiry sql.NullTime) error
	RenewFunc              func(ctx context.Context, id uuid.UUID, expiry time.Time) error
	DeactivateByAdminFunc  func(ctx context.Context, adminID uuid.UUID) error
	ListExpiringWithinFunc func(ctx context.Context, days int) ([]*license.ExpiringLicense, error)
	SummarizeFunc          func(ctx context.Context, warningDays int) (*license.Summary, error)
}

func (m *mockLicenseRepo) Create(ctx context.Context, lic *license.License) (uuid.UUID, error) {
	if m.CreateFunc == nil {
		return uuid.New(), nil
	}
	return m.CreateFunc(ctx, lic)
}

func (m *mockLicenseRepo) FindByID(ctx context.Context, id uuid.UUID) (*license.License, error) {
	if m.FindByIDFunc == nil {
		return nil, nil
	}
	return m.FindByIDFunc(ctx, id)
}

func (m *mockLicenseRepo) FindByKey(ctx context.Context, key string) (*license.License, error) {
	if m.FindByKeyFunc == nil {
		return nil, nil
	}
	return m.FindByKeyFunc(ctx, key)
}

func (m *mockLicenseRepo) FindByAdmin(ctx context.Context, adminID uuid.UUID) (*license.License, error) {
	if m.FindByAdminFunc == nil {
		return nil, nil
	}
	return m.FindByAdminFunc(ctx, adminID)
}

func (m *mockLicenseRepo) KeyExists(ctx context.Context, key string) (bool, error) {
	if m.KeyExistsFunc == nil {
		return false, nil
	}
	return m.KeyExistsFunc(ctx, key)
}

func (m *mockLicenseRepo) List(ctx context.Context) ([]*license.License, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx)
}

func (m *mockLicenseRepo) ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]*license.License, error) {
	if m.ListByAdminFunc == nil {
		return nil, nil
	}
	return m.ListByAdminFunc(ctx, adminID)
}

func (m *mockLicenseRepo) HasCurrentLicense(ctx context.Context, adminID uuid.UUID, email string) (bool, error) {
	if m.HasCurrentLicenseFunc == nil {
		return false, nil
	}
	return m.HasCurrentLicenseFunc(ctx, adminID, email)
}

func (m *mockLicenseRepo) HasUsableByAdmin(ctx context.Context, adminID uuid.UUID, now time.Time) (bool, error) {
	if m.HasUsableByAdminFunc == nil {
		return false, nil
	}
	return m.HasUsableByAdminFunc(ctx, adminID, now)
}

func (m *mockLicenseRepo) HasActiveByEmail(ctx context.Context, email string, now time.Time) (bool, error) {
	if m.HasActiveByEmailFunc == nil {
		return false, nil
	}
	return m.HasActiveByEmailFunc(ctx, email, now)
}

func (m *mockLicenseRepo) Claim(ctx context.Context, key string, adminID uuid.UUID, email string) (bool, error) {
	if m.ClaimFunc == nil {
		return true, nil
	}
	return m.ClaimFunc(ctx, key, adminID, email)
}

func (m *mockLicenseRepo) ReactivateForOwner(ctx context.Context, key string, adminID uuid.UUID, email string) (bool, error) {
	if m.ReactivateForOwnerFunc == nil {
		return true, nil
	}
	return m.ReactivateForOwnerFunc(ctx, key, adminID, email)
}

func (m *mockLicenseRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if m.SetActiveFunc == nil {
		return nil
	}
	return m.SetActiveFunc(ctx, id, active)
}

func (m *mockLicenseRepo) SetExpiry(ctx context.Context, id uuid.UUID, expiry sql.NullTime) error {
	if m.SetExpiryFunc == nil {
		return nil
	}
	return m.SetExpiryFunc(ctx, id, expiry)
}

func (m *mockLicenseRepo) Renew(ctx context.Context, id uuid.UUID, expiry time.Time) error {
	if m.RenewFunc == nil {
		return nil
	}
	return m.RenewFunc(ctx, id, expiry)
}

func (m *mockLicenseRepo) DeactivateByAdmin(ctx context.Context, adminID uuid.UUID) error {
	if m.DeactivateByAdminFunc == nil {
		return nil
	}
	return m.DeactivateByAdminFunc(ctx, adminID)
}

func (m *mockLicenseRepo) ListExpiringWithin(ctx context.Context, days int) ([]*license.ExpiringLicense, error) {
	if m.ListExpiringWithinFunc == nil {
		return nil, nil
	}
	return m.ListExpiringWithinFunc(ctx, days)
}

func (m *mockLicenseRepo) Summarize(ctx context.Context, warningDays int) (*license.Summary, error) {
	if m.SummarizeFunc == nil {
		return &license.Summary{}, nil
	}
	return m.SummarizeFunc(ctx, warningDays)
}

type mockAccountRepo struct {
	CreateFunc      func(ctx context.Context, acct *account.Account) (uuid.UUID, error)
	FindByIDFunc    func(ctx context.Context, id uuid.UUID) (*account.Account, error)
	FindByEmailFunc func(ctx context.Context, email string) (*account.Account, error)
	ListByRoleFunc  func(ctx context.Context, role account.Role) ([]*account.Account, error)
	SetActiveFunc   func(ctx context.Context, id uuid.UUID, active bool) error
}

func (m *mockAccountRepo) Create(ctx context.Context, acct *account.Account) (uuid.UUID, error) {
	if m.CreateFunc == nil {
		return uuid.New(), nil
	}
	return m.CreateFunc(ctx, acct)
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	if m.FindByIDFunc == nil {
		return nil, nil
	}
	return m.FindByIDFunc(ctx, id)
}

func (m *mockAccountRepo) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	if m.FindByEmailFunc == nil {
		return nil, nil
	}
	return m.FindByEmailFunc(ctx, email)
}

func (m *mockAccountRepo) ListByRole(ctx context.Context, role account.Role) ([]*account.Account, error) {
	if m.ListByRoleFunc == nil {
		return nil, nil
	}
	return m.ListByRoleFunc(ctx, role)
}

func (m *mockAccountRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if m.SetActiveFunc == nil {
		return nil
	}
	return m.SetActiveFunc(ctx, id, active)
}

type emittedNotification struct {
	Type             string
	Message          string
	TargetRole       string
	TargetUserID     uuid.NullUUID
	RelatedLicenseID uuid.NullUUID
}

// mockNotifier records emissions synchronously so tests can assert on them
// without racing the emitter's detached goroutine.
type mockNotifier struct {
	mu      sync.Mutex
	emitted []emittedNotification
}

func (m *mockNotifier) Emit(typ, message, targetRole string, targetUserID, relatedLicenseID uuid.NullUUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted = append(m.emitted, emittedNotification{
		Type:             typ,
		Message:          message,
		TargetRole:       targetRole,
		TargetUserID:     targetUserID,
		RelatedLicenseID: relatedLicenseID,
	})
}

func (m *mockNotifier) byType(typ string) []emittedNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []emittedNotification
	for _, n := range m.emitted {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

var _ license.Repository = (*mockLicenseRepo)(nil)
var _ account.Repository = (*mockAccountRepo)(nil)
var _ Notifier = (*mockNotifier)(nil)
