package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/procurahq/license-api/internal/domain/account"
	"github.com/procurahq/license-api/internal/domain/license"
	"github.com/procurahq/license-api/internal/domain/notification"
	"github.com/procurahq/license-api/internal/ierr"
	"github.com/procurahq/license-api/internal/licensekey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newAdminService(accounts *mockAccountRepo, licenses *mockLicenseRepo, notifier *mockNotifier) *AdminService {
	return NewAdminService(accounts, licenses, notifier, time.UTC, licensekey.DefaultMaxAttempts, zap.NewNop())
}

func TestCreateAdminProvisionsAccountAndLicense(t *testing.T) {
	acctID := uuid.New()
	licID := uuid.New()

	var createdAcct *account.Account
	var createdLic *license.License

	accounts := &mockAccountRepo{
		CreateFunc: func(ctx context.Context, acct *account.Account) (uuid.UUID, error) {
			createdAcct = acct
			return acctID, nil
		},
	}
	licenses := &mockLicenseRepo{
		CreateFunc: func(ctx context.Context, lic *license.License) (uuid.UUID, error) {
			createdLic = lic
			return licID, nil
		},
	}
	notifier := &mockNotifier{}
	svc := newAdminService(accounts, licenses, notifier)

	rec, err := svc.CreateAdmin(context.Background(), CreateAdminInput{
		Email:      "  new.admin@corp.com ",
		Password:   "hunter2hunter2",
		ExpiryDate: "2026-06-30",
	})
	require.NoError(t, err)

	require.NotNil(t, createdAcct)
	assert.Equal(t, "new.admin@corp.com", createdAcct.Email)
	assert.Equal(t, account.RoleAdmin, createdAcct.Role)
	assert.True(t, createdAcct.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(createdAcct.PasswordHash), []byte("hunter2hunter2")))

	require.NotNil(t, createdLic)
	assert.True(t, licensekey.IsValid(createdLic.LicenseKey))
	assert.Equal(t, license.StatusActive, createdLic.Status)
	assert.True(t, createdLic.IsActive)
	assert.Equal(t, acctID, createdLic.AdminID.UUID)
	assert.Equal(t, "new.admin@corp.com", createdLic.AssignedEmail.String)
	require.True(t, createdLic.ExpiryDate.Valid)
	assert.Equal(t, time.Date(2026, 6, 30, 23, 59, 59, 0, time.UTC), createdLic.ExpiryDate.Time)

	assert.Equal(t, acctID, rec.Account.ID)
	assert.Equal(t, licID, rec.License.ID)

	created := notifier.byType(notification.TypeAdminCreated)
	require.Len(t, created, 1)
	assert.Equal(t, string(account.RoleSuperadmin), created[0].TargetRole)
	assert.Contains(t, created[0].Message, "new.admin@corp.com")
}

func TestCreateAdminDuplicateEmail(t *testing.T) {
	accounts := &mockAccountRepo{
		FindByEmailFunc: func(ctx context.Context, email string) (*account.Account, error) {
			return adminAccount(uuid.New(), email), nil
		},
	}
	svc := newAdminService(accounts, &mockLicenseRepo{}, &mockNotifier{})

	_, err := svc.CreateAdmin(context.Background(), CreateAdminInput{
		Email:    "taken@corp.com",
		Password: "hunter2hunter2",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ierr.ErrConflict)
}

func TestCreateAdminRequiresCredentials(t *testing.T) {
	svc := newAdminService(&mockAccountRepo{}, &mockLicenseRepo{}, &mockNotifier{})

	_, err := svc.CreateAdmin(context.Background(), CreateAdminInput{Email: "", Password: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ierr.ErrValidation)

	_, err = svc.CreateAdmin(context.Background(), CreateAdminInput{Email: "a@b.com", Password: ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, ierr.ErrValidation)
}

func TestCreateAdminPeriodFromStartDate(t *testing.T) {
	var createdLic *license.License
	licenses := &mockLicenseRepo{
		CreateFunc: func(ctx context.Context, lic *license.License) (uuid.UUID, error) {
			createdLic = lic
			return uuid.New(), nil
		},
	}
	svc := newAdminService(&mockAccountRepo{}, licenses, &mockNotifier{})

	_, err := svc.CreateAdmin(context.Background(), CreateAdminInput{
		Email:             "periodic@corp.com",
		Password:          "hunter2hunter2",
		StartDate:         "2026-01-01",
		LicensePeriodDays: 90,
	})
	require.NoError(t, err)

	require.True(t, createdLic.ExpiryDate.Valid)
	assert.Equal(t, time.Date(2026, 4, 1, 23, 59, 59, 0, time.UTC), createdLic.ExpiryDate.Time)
}

func TestCreateAdminWithoutExpiryInputs(t *testing.T) {
	var createdLic *license.License
	licenses := &mockLicenseRepo{
		CreateFunc: func(ctx context.Context, lic *license.License) (uuid.UUID, error) {
			createdLic = lic
			return uuid.New(), nil
		},
	}
	svc := newAdminService(&mockAccountRepo{}, licenses, &mockNotifier{})

	_, err := svc.CreateAdmin(context.Background(), CreateAdminInput{
		Email:    "open-ended@corp.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.False(t, createdLic.ExpiryDate.Valid)
}

func TestListAdminsJoinsLicenses(t *testing.T) {
	withLicense := adminAccount(uuid.New(), "one@corp.com")
	withoutLicense := adminAccount(uuid.New(), "two@corp.com")

	accounts := &mockAccountRepo{
		ListByRoleFunc: func(ctx context.Context, role account.Role) ([]*account.Account, error) {
			assert.Equal(t, account.RoleAdmin, role)
			return []*account.Account{withLicense, withoutLicense}, nil
		},
	}
	licenses := &mockLicenseRepo{
		FindByAdminFunc: func(ctx context.Context, adminID uuid.UUID) (*license.License, error) {
			if adminID == withLicense.ID {
				return &license.License{ID: uuid.New(), AdminID: uuid.NullUUID{UUID: adminID, Valid: true}}, nil
			}
			return nil, nil
		},
	}
	svc := newAdminService(accounts, licenses, &mockNotifier{})

	records, err := svc.ListAdmins(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotNil(t, records[0].License)
	assert.Nil(t, records[1].License)
}

func TestToggleAdminDeactivationKillsLicenses(t *testing.T) {
	adminID := uuid.New()
	deactivated := false

	accounts := &mockAccountRepo{
		FindByIDFunc: func(ctx context.Context, id uuid.UUID) (*account.Account, error) {
			return adminAccount(adminID, "a@b.com"), nil
		},
	}
	licenses := &mockLicenseRepo{
		DeactivateByAdminFunc: func(ctx context.Context, id uuid.UUID) error {
			deactivated = true
			assert.Equal(t, adminID, id)
			return nil
		},
	}
	svc := newAdminService(accounts, licenses, &mockNotifier{})

	newState, err := svc.ToggleAdmin(context.Background(), adminID)
	require.NoError(t, err)
	assert.False(t, newState)
	assert.True(t, deactivated)
}

func TestToggleAdminReactivationLeavesLicensesAlone(t *testing.T) {
	adminID := uuid.New()
	accounts := &mockAccountRepo{
		FindByIDFunc: func(ctx context.Context, id uuid.UUID) (*account.Account, error) {
			acct := adminAccount(adminID, "a@b.com")
			acct.IsActive = false
			return acct, nil
		},
	}
	licenses := &mockLicenseRepo{
		DeactivateByAdminFunc: func(ctx context.Context, id uuid.UUID) error {
			t.Fatal("reactivation must not touch licenses")
			return nil
		},
	}
	svc := newAdminService(accounts, licenses, &mockNotifier{})

	newState, err := svc.ToggleAdmin(context.Background(), adminID)
	require.NoError(t, err)
	assert.True(t, newState)
}

func TestToggleAdminRejectsSuperadmin(t *testing.T) {
	accounts := &mockAccountRepo{
		FindByIDFunc: func(ctx context.Context, id uuid.UUID) (*account.Account, error) {
			return &account.Account{ID: id, Role: account.RoleSuperadmin, IsActive: true}, nil
		},
	}
	svc := newAdminService(accounts, &mockLicenseRepo{}, &mockNotifier{})

	_, err := svc.ToggleAdmin(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ierr.ErrNotFound)
}

func TestUpdateExpiryForAdminWithoutLicense(t *testing.T) {
	svc := newAdminService(&mockAccountRepo{}, &mockLicenseRepo{}, &mockNotifier{})

	_, err := svc.UpdateExpiryForAdmin(context.Background(), uuid.New(), "2026-01-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, ierr.ErrNotFound)
}

func TestMyDataIncludesDaysRemaining(t *testing.T) {
	adminID := uuid.New()
	accounts := &mockAccountRepo{
		FindByIDFunc: func(ctx context.Context, id uuid.UUID) (*account.Account, error) {
			return adminAccount(adminID, "me@corp.com"), nil
		},
	}
	licenses := &mockLicenseRepo{
		FindByAdminFunc: func(ctx context.Context, id uuid.UUID) (*license.License, error) {
			lic := &license.License{ID: uuid.New(), AdminID: uuid.NullUUID{UUID: adminID, Valid: true}}
			lic.ExpiryDate.Time = time.Now().Add(10*24*time.Hour + time.Hour)
			lic.ExpiryDate.Valid = true
			return lic, nil
		},
	}
	svc := newAdminService(accounts, licenses, &mockNotifier{})

	rec, err := svc.MyData(context.Background(), adminID)
	require.NoError(t, err)
	require.NotNil(t, rec.DaysRemaining)
	assert.Equal(t, 10, *rec.DaysRemaining)
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, -1, daysRemaining(now.Add(-time.Second), now))
	assert.Equal(t, 0, daysRemaining(now.Add(6*time.Hour), now))
	assert.Equal(t, 3, daysRemaining(now.AddDate(0, 0, 3), now))
}
