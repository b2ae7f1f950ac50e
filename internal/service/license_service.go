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
	"github.com/procurahq/license-api/internal/metrics"
	"go.uber.org/zap"
)

const expiryDateLayout = "2006-01-02"

type LicenseService struct {
	repo           license.Repository
	accounts       account.Repository
	notifier       Notifier
	loc            *time.Location
	keyMaxAttempts int
	warningDays    int
	logger         *zap.Logger
}

func NewLicenseService(repo license.Repository, accounts account.Repository, notifier Notifier, loc *time.Location, keyMaxAttempts, warningDays int, logger *zap.Logger) *LicenseService {
	if loc == nil {
		loc = time.UTC
	}
	if keyMaxAttempts <= 0 {
		keyMaxAttempts = licensekey.DefaultMaxAttempts
	}
	return &LicenseService{
		repo:           repo,
		accounts:       accounts,
		notifier:       notifier,
		loc:            loc,
		keyMaxAttempts: keyMaxAttempts,
		warningDays:    warningDays,
		logger:         logger.Named("LicenseService"),
	}
}

type ActivationResult struct {
	AlreadyActive bool
	Message       string
}

// Activate binds a license key to the calling account. Re-activation by the
// owning account is idempotent; every other conflicting state is rejected
// without touching the row.
func (s *LicenseService) Activate(ctx context.Context, caller *Claims, rawKey string) (*ActivationResult, error) {
	key := licensekey.Normalize(rawKey)
	if key == "" {
		return nil, fmt.Errorf("%w: license key is required", ierr.ErrValidation)
	}
	if !licensekey.IsValid(key) {
		metrics.ActivationsTotal.WithLabelValues("invalid_format").Inc()
		return nil, fmt.Errorf("%w: invalid license key format, expected APP-XXXX-YYYY-ZZZZ", ierr.ErrValidation)
	}

	lic, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("repository error during activation lookup: %w", err)
	}
	if lic == nil {
		metrics.ActivationsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: invalid license key", ierr.ErrNotFound)
	}

	acct, err := s.accounts.FindByEmail(ctx, caller.Email)
	if err != nil {
		return nil, fmt.Errorf("repository error during user lookup: %w", err)
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: user not found", ierr.ErrNotFound)
	}

	if lic.OwnedBy(acct.ID) {
		if lic.Status == license.StatusActive && lic.IsActive {
			s.logger.Info("License already active for owner", zap.String("key", key), zap.String("admin_id", acct.ID.String()))
			return &ActivationResult{AlreadyActive: true, Message: "License is already active for your account"}, nil
		}

		ok, err := s.repo.ReactivateForOwner(ctx, key, acct.ID, caller.Email)
		if err != nil {
			return nil, fmt.Errorf("repository error during reactivation: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: license could not be reactivated", ierr.ErrUpdateFailed)
		}

		metrics.ActivationsTotal.WithLabelValues("reactivated").Inc()
		s.logger.Info("License reactivated for owner", zap.String("key", key), zap.String("admin_id", acct.ID.String()))
		return &ActivationResult{Message: "License activated successfully"}, nil
	}

	if lic.AdminID.Valid {
		metrics.ActivationsTotal.WithLabelValues("foreign_owner").Inc()
		return nil, fmt.Errorf("%w: this license is already assigned to another admin", ierr.ErrConflict)
	}

	// A non-unused key with no owner is rejected the same way as a used one.
	if lic.Status != license.StatusUnused {
		metrics.ActivationsTotal.WithLabelValues("already_used").Inc()
		return nil, fmt.Errorf("%w: invalid or already used key", ierr.ErrConflict)
	}

	hasCurrent, err := s.repo.HasCurrentLicense(ctx, acct.ID, caller.Email)
	if err != nil {
		return nil, fmt.Errorf("repository error during existing license check: %w", err)
	}
	if hasCurrent {
		metrics.ActivationsTotal.WithLabelValues("duplicate_license").Inc()
		return nil, fmt.Errorf("%w: you already have an active license", ierr.ErrConflict)
	}

	claimed, err := s.repo.Claim(ctx, key, acct.ID, caller.Email)
	if err != nil {
		return nil, fmt.Errorf("repository error during claim: %w", err)
	}
	if !claimed {
		// Lost a concurrent claim race, or the row changed under us.
		metrics.ActivationsTotal.WithLabelValues("already_used").Inc()
		return nil, fmt.Errorf("%w: invalid or already used key", ierr.ErrConflict)
	}

	metrics.ActivationsTotal.WithLabelValues("activated").Inc()
	s.logger.Info("License activated", zap.String("key", key), zap.String("admin_id", acct.ID.String()))

	s.notifier.Emit(
		notification.TypeLicenseActivated,
		fmt.Sprintf("License %s activated by %s", key, caller.Email),
		string(account.RoleSuperadmin),
		uuid.NullUUID{},
		uuid.NullUUID{UUID: lic.ID, Valid: true},
	)

	return &ActivationResult{Message: "License activated successfully"}, nil
}

type ValidationResult struct {
	Valid   bool
	Message string
}

// Validate reports whether the caller currently holds a usable license.
// Absence of a license is a valid=false answer, never an error.
func (s *LicenseService) Validate(ctx context.Context, caller *Claims) (*ValidationResult, error) {
	acct, err := s.accounts.FindByEmail(ctx, caller.Email)
	if err != nil {
		return nil, fmt.Errorf("repository error during user lookup: %w", err)
	}

	now := time.Now()
	var valid bool
	if acct != nil && acct.Role == account.RoleAdmin {
		valid, err = s.repo.HasUsableByAdmin(ctx, acct.ID, now)
	} else {
		valid, err = s.repo.HasActiveByEmail(ctx, caller.Email, now)
	}
	if err != nil {
		return nil, fmt.Errorf("repository error during license validation: %w", err)
	}

	msg := "No active license found"
	if valid {
		msg = "License is valid"
	}
	return &ValidationResult{Valid: valid, Message: msg}, nil
}

// HasUsableForAdmin is the guard used by the license-validation middleware.
func (s *LicenseService) HasUsableForAdmin(ctx context.Context, adminID uuid.UUID) (bool, error) {
	return s.repo.HasUsableByAdmin(ctx, adminID, time.Now())
}

// Verify checks a bare license key for third-party software. It never requires
// authentication and reports distinct reasons for each invalid state.
func (s *LicenseService) Verify(ctx context.Context, rawKey string) (*ValidationResult, error) {
	key := licensekey.Normalize(rawKey)
	if key == "" {
		return nil, fmt.Errorf("%w: license key is required", ierr.ErrValidation)
	}

	lic, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("repository error during verification: %w", err)
	}

	switch {
	case lic == nil:
		metrics.VerificationsTotal.WithLabelValues("not_found").Inc()
		return &ValidationResult{Valid: false, Message: "License key not found"}, nil
	case !lic.IsActive:
		metrics.VerificationsTotal.WithLabelValues("inactive").Inc()
		return &ValidationResult{Valid: false, Message: "License is inactive"}, nil
	case lic.Expired(time.Now()):
		metrics.VerificationsTotal.WithLabelValues("expired").Inc()
		return &ValidationResult{Valid: false, Message: "License has expired"}, nil
	default:
		metrics.VerificationsTotal.WithLabelValues("valid").Inc()
		return &ValidationResult{Valid: true, Message: "License is valid"}, nil
	}
}

// Generate mints a fresh unused license, optionally expiring at the end of the
// given calendar day. The role gate admits only superadmins before this runs.
func (s *LicenseService) Generate(ctx context.Context, expiryDate string) (*license.License, error) {
	expiry, err := s.parseExpiry(expiryDate)
	if err != nil {
		return nil, err
	}

	key, err := licensekey.GenerateUnique(ctx, s.repo, s.keyMaxAttempts)
	if err != nil {
		return nil, err
	}

	newLicense := &license.License{
		LicenseKey: key,
		Status:     license.StatusUnused,
		IsActive:   true,
		ExpiryDate: expiry,
	}

	insertedID, err := s.repo.Create(ctx, newLicense)
	if err != nil {
		return nil, fmt.Errorf("repository error during license creation: %w", err)
	}
	newLicense.ID = insertedID

	metrics.KeysGeneratedTotal.Inc()
	s.logger.Info("License generated", zap.String("id", insertedID.String()), zap.String("key", key))
	return newLicense, nil
}

// ListLicenses is role-scoped: superadmins see every license, admins only
// their own rows.
func (s *LicenseService) ListLicenses(ctx context.Context, caller *Claims) ([]*license.License, error) {
	switch caller.Role {
	case account.RoleSuperadmin:
		return s.repo.List(ctx)
	case account.RoleAdmin:
		return s.repo.ListByAdmin(ctx, caller.UserID)
	default:
		return nil, fmt.Errorf("%w: admin or superadmin access required", ierr.ErrForbidden)
	}
}

// ToggleActive flips the access-granting flag without touching status or expiry.
func (s *LicenseService) ToggleActive(ctx context.Context, id uuid.UUID) (bool, error) {
	lic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("repository error during toggle lookup: %w", err)
	}
	if lic == nil {
		return false, fmt.Errorf("%w: license not found", ierr.ErrNotFound)
	}

	newState := !lic.IsActive
	if err := s.repo.SetActive(ctx, id, newState); err != nil {
		return false, fmt.Errorf("repository error during toggle: %w", err)
	}

	s.logger.Info("License active flag toggled", zap.String("id", id.String()), zap.Bool("is_active", newState))
	return newState, nil
}

// UpdateExpiry sets or clears the expiry date; an empty date means "never expires".
func (s *LicenseService) UpdateExpiry(ctx context.Context, id uuid.UUID, expiryDate string) (sql.NullTime, error) {
	expiry, err := s.parseExpiry(expiryDate)
	if err != nil {
		return sql.NullTime{}, err
	}

	lic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("repository error during expiry lookup: %w", err)
	}
	if lic == nil {
		return sql.NullTime{}, fmt.Errorf("%w: license not found", ierr.ErrNotFound)
	}

	if err := s.repo.SetExpiry(ctx, id, expiry); err != nil {
		return sql.NullTime{}, fmt.Errorf("repository error during expiry update: %w", err)
	}

	s.logger.Info("License expiry updated", zap.String("id", id.String()))
	return expiry, nil
}

// RenewForAdmin extends an admin's license, either to an absolute date or by a
// number of days from the current expiry (or from now when none is set). The
// license is forced back into the active state either way.
func (s *LicenseService) RenewForAdmin(ctx context.Context, adminID uuid.UUID, expiryDate string, extendDays int) (time.Time, error) {
	if expiryDate != "" && extendDays > 0 {
		return time.Time{}, fmt.Errorf("%w: provide either expiryDate or extendDays, not both", ierr.ErrInvalidArgument)
	}
	if expiryDate == "" && extendDays <= 0 {
		return time.Time{}, fmt.Errorf("%w: either expiryDate or extendDays is required", ierr.ErrInvalidArgument)
	}

	acct, err := s.accounts.FindByID(ctx, adminID)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository error during admin lookup: %w", err)
	}
	if acct == nil || acct.Role != account.RoleAdmin {
		return time.Time{}, fmt.Errorf("%w: admin not found", ierr.ErrNotFound)
	}

	lic, err := s.repo.FindByAdmin(ctx, adminID)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository error during license lookup: %w", err)
	}
	if lic == nil {
		return time.Time{}, fmt.Errorf("%w: admin does not have a license", ierr.ErrNotFound)
	}

	var newExpiry time.Time
	if expiryDate != "" {
		parsed, err := s.parseExpiry(expiryDate)
		if err != nil {
			return time.Time{}, err
		}
		newExpiry = parsed.Time
	} else {
		base := time.Now().In(s.loc)
		if lic.ExpiryDate.Valid {
			base = lic.ExpiryDate.Time.In(s.loc)
		}
		newExpiry = s.endOfDay(base.AddDate(0, 0, extendDays))
	}

	if err := s.repo.Renew(ctx, lic.ID, newExpiry); err != nil {
		return time.Time{}, fmt.Errorf("repository error during renewal: %w", err)
	}

	s.logger.Info("License renewed for admin",
		zap.String("admin_id", adminID.String()),
		zap.String("license_id", lic.ID.String()),
		zap.Time("new_expiry", newExpiry),
	)

	licRef := uuid.NullUUID{UUID: lic.ID, Valid: true}
	s.notifier.Emit(
		notification.TypeRenewalApproved,
		fmt.Sprintf("Your license has been renewed. New expiry date: %s", newExpiry.Format(expiryDateLayout)),
		string(account.RoleAdmin),
		uuid.NullUUID{UUID: adminID, Valid: true},
		licRef,
	)
	s.notifier.Emit(
		notification.TypeLicenseRenewed,
		fmt.Sprintf("License renewed for admin: %s", acct.Email),
		string(account.RoleSuperadmin),
		uuid.NullUUID{},
		licRef,
	)

	return newExpiry, nil
}

func (s *LicenseService) ExpiringLicenses(ctx context.Context, days int) ([]*license.ExpiringLicense, error) {
	if days <= 0 {
		days = s.warningDays
	}
	return s.repo.ListExpiringWithin(ctx, days)
}

func (s *LicenseService) DashboardSummary(ctx context.Context) (*license.Summary, error) {
	return s.repo.Summarize(ctx, s.warningDays)
}

func (s *LicenseService) parseExpiry(dateStr string) (sql.NullTime, error) {
	return parseExpiryDate(s.loc, dateStr)
}

func (s *LicenseService) endOfDay(t time.Time) time.Time {
	return endOfDay(s.loc, t)
}

// parseExpiryDate turns an optional YYYY-MM-DD string into an end-of-day
// timestamp in the given reference timezone. Empty input means no expiry.
func parseExpiryDate(loc *time.Location, dateStr string) (sql.NullTime, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return sql.NullTime{}, nil
	}

	parsed, err := time.ParseInLocation(expiryDateLayout, dateStr, loc)
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("%w: invalid expiry date format, use YYYY-MM-DD", ierr.ErrValidation)
	}
	return sql.NullTime{Time: endOfDay(loc, parsed), Valid: true}, nil
}

func endOfDay(loc *time.Location, t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc)
}
