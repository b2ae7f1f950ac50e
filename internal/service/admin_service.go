package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/procurahq/license-api/internal/domain/account"
	"github.com/procurahq/license-api/internal/domain/license"
	"github.com/procurahq/license-api/internal/domain/notification"
	"github.com/procurahq/license-api/internal/ierr"
	"github.com/procurahq/license-api/internal/licensekey"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AdminService struct {
	accounts       account.Repository
	licenses       license.Repository
	notifier       Notifier
	loc            *time.Location
	keyMaxAttempts int
	logger         *zap.Logger
}

func NewAdminService(accounts account.Repository, licenses license.Repository, notifier Notifier, loc *time.Location, keyMaxAttempts int, logger *zap.Logger) *AdminService {
	if loc == nil {
		loc = time.UTC
	}
	if keyMaxAttempts <= 0 {
		keyMaxAttempts = licensekey.DefaultMaxAttempts
	}
	return &AdminService{
		accounts:       accounts,
		licenses:       licenses,
		notifier:       notifier,
		loc:            loc,
		keyMaxAttempts: keyMaxAttempts,
		logger:         logger.Named("AdminService"),
	}
}

type CreateAdminInput struct {
	Email             string
	Password          string
	StartDate         string
	ExpiryDate        string
	LicensePeriodDays int
}

type AdminRecord struct {
	Account       *account.Account
	License       *license.License
	DaysRemaining *int
}

// CreateAdmin provisions an admin account together with an already-assigned
// active license and notifies the superadmin audit trail.
func (s *AdminService) CreateAdmin(ctx context.Context, in CreateAdminInput) (*AdminRecord, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ierr.ErrValidation)
	}

	existing, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("repository error during duplicate check: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: user with this email already exists", ierr.ErrConflict)
	}

	expiry, err := s.resolveExpiry(in.StartDate, in.ExpiryDate, in.LicensePeriodDays)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%w: password hashing failed", ierr.ErrInternalServer)
	}

	acct := &account.Account{
		Email:        email,
		PasswordHash: string(hash),
		Role:         account.RoleAdmin,
		IsActive:     true,
	}
	acctID, err := s.accounts.Create(ctx, acct)
	if err != nil {
		return nil, err
	}
	acct.ID = acctID

	key, err := licensekey.GenerateUnique(ctx, s.licenses, s.keyMaxAttempts)
	if err != nil {
		return nil, err
	}

	lic := &license.License{
		LicenseKey:    key,
		AdminID:       uuid.NullUUID{UUID: acctID, Valid: true},
		AssignedEmail: sql.NullString{String: email, Valid: true},
		Status:        license.StatusActive,
		IsActive:      true,
		ExpiryDate:    expiry,
	}
	licID, err := s.licenses.Create(ctx, lic)
	if err != nil {
		return nil, fmt.Errorf("repository error during license creation: %w", err)
	}
	lic.ID = licID

	s.logger.Info("Admin created with license",
		zap.String("admin_id", acctID.String()),
		zap.String("license_key", key),
	)

	s.notifier.Emit(
		notification.TypeAdminCreated,
		fmt.Sprintf("New admin created: %s", email),
		string(account.RoleSuperadmin),
		uuid.NullUUID{},
		uuid.NullUUID{UUID: licID, Valid: true},
	)

	return s.record(acct, lic), nil
}

// ListAdmins returns every admin account with its license, newest first.
func (s *AdminService) ListAdmins(ctx context.Context) ([]*AdminRecord, error) {
	admins, err := s.accounts.ListByRole(ctx, account.RoleAdmin)
	if err != nil {
		return nil, err
	}

	records := make([]*AdminRecord, 0, len(admins))
	for _, acct := range admins {
		lic, err := s.licenses.FindByAdmin(ctx, acct.ID)
		if err != nil {
			return nil, fmt.Errorf("repository error during license lookup for admin %s: %w", acct.ID, err)
		}
		records = append(records, s.record(acct, lic))
	}
	return records, nil
}

// ToggleAdmin flips the account's active flag. Deactivating an admin also
// deactivates their license so access stops immediately.
func (s *AdminService) ToggleAdmin(ctx context.Context, adminID uuid.UUID) (bool, error) {
	acct, err := s.accounts.FindByID(ctx, adminID)
	if err != nil {
		return false, fmt.Errorf("repository error during admin lookup: %w", err)
	}
	if acct == nil || acct.Role != account.RoleAdmin {
		return false, fmt.Errorf("%w: admin not found", ierr.ErrNotFound)
	}

	newState := !acct.IsActive
	if err := s.accounts.SetActive(ctx, adminID, newState); err != nil {
		return false, err
	}

	if !newState {
		if err := s.licenses.DeactivateByAdmin(ctx, adminID); err != nil {
			return false, err
		}
	}

	s.logger.Info("Admin active flag toggled", zap.String("admin_id", adminID.String()), zap.Bool("is_active", newState))
	return newState, nil
}

// UpdateExpiryForAdmin sets or clears the expiry of the admin's license.
func (s *AdminService) UpdateExpiryForAdmin(ctx context.Context, adminID uuid.UUID, expiryDate string) (sql.NullTime, error) {
	expiry, err := parseExpiryDate(s.loc, expiryDate)
	if err != nil {
		return sql.NullTime{}, err
	}

	lic, err := s.licenses.FindByAdmin(ctx, adminID)
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("repository error during license lookup: %w", err)
	}
	if lic == nil {
		return sql.NullTime{}, fmt.Errorf("%w: license not found for this admin", ierr.ErrNotFound)
	}

	if err := s.licenses.SetExpiry(ctx, lic.ID, expiry); err != nil {
		return sql.NullTime{}, err
	}
	return expiry, nil
}

// MyData returns the calling admin's own account and license.
func (s *AdminService) MyData(ctx context.Context, adminID uuid.UUID) (*AdminRecord, error) {
	acct, err := s.accounts.FindByID(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("repository error during admin lookup: %w", err)
	}
	if acct == nil || acct.Role != account.RoleAdmin {
		return nil, fmt.Errorf("%w: admin data not found", ierr.ErrNotFound)
	}

	lic, err := s.licenses.FindByAdmin(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("repository error during license lookup: %w", err)
	}
	return s.record(acct, lic), nil
}

func (s *AdminService) record(acct *account.Account, lic *license.License) *AdminRecord {
	rec := &AdminRecord{Account: acct, License: lic}
	if lic != nil && lic.ExpiryDate.Valid {
		days := daysRemaining(lic.ExpiryDate.Time, time.Now())
		rec.DaysRemaining = &days
	}
	return rec
}

func (s *AdminService) resolveExpiry(startDate, expiryDate string, periodDays int) (sql.NullTime, error) {
	if expiryDate != "" {
		return parseExpiryDate(s.loc, expiryDate)
	}
	if periodDays <= 0 {
		return sql.NullTime{}, nil
	}

	start := time.Now().In(s.loc)
	if strings.TrimSpace(startDate) != "" {
		parsed, err := time.ParseInLocation(expiryDateLayout, strings.TrimSpace(startDate), s.loc)
		if err != nil {
			return sql.NullTime{}, fmt.Errorf("%w: invalid start date format, use YYYY-MM-DD", ierr.ErrValidation)
		}
		start = parsed
	}
	return sql.NullTime{Time: endOfDay(s.loc, start.AddDate(0, 0, periodDays)), Valid: true}, nil
}

// daysRemaining mirrors the reporting convention of the admin views: whole
// days until expiry, -1 once the date has passed.
func daysRemaining(expiry, now time.Time) int {
	if now.After(expiry) {
		return -1
	}
	return int(expiry.Sub(now).Hours() / 24)
}
