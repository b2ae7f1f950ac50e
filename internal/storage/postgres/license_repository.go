package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/procurahq/license-api/internal/domain/license"
	"go.uber.org/zap"
)

const licenseColumns = `id, license_key, admin_id, assigned_email, status, is_active, expiry_date, created_at, updated_at`

type LicenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewLicenseRepository(db *pgxpool.Pool, logger *zap.Logger) *LicenseRepository {
	return &LicenseRepository{
		db:     db,
		logger: logger.Named("LicenseRepository"),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) (uuid.UUID, error) {
	query := `
        INSERT INTO licenses (license_key, admin_id, assigned_email, status, is_active, expiry_date)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	var insertedID uuid.UUID

	err := r.db.QueryRow(ctx, query,
		lic.LicenseKey,
		lic.AdminID,
		lic.AssignedEmail,
		lic.Status,
		lic.IsActive,
		lic.ExpiryDate,
	).Scan(&insertedID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create license with duplicate key",
				zap.String("license_key", lic.LicenseKey),
				zap.String("constraint", pgErr.ConstraintName),
			)
			return uuid.Nil, fmt.Errorf("license key '%s' already exists", lic.LicenseKey)
		}

		r.logger.Error("Failed to create license in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create license: %w", err)
	}

	r.logger.Info("License created", zap.String("id", insertedID.String()), zap.String("key", lic.LicenseKey))
	return insertedID, nil
}

func (r *LicenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
	return r.scanLicense(r.db.QueryRow(ctx, query, id))
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE license_key = $1`
	return r.scanLicense(r.db.QueryRow(ctx, query, key))
}

func (r *LicenseRepository) FindByAdmin(ctx context.Context, adminID uuid.UUID) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE admin_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.scanLicense(r.db.QueryRow(ctx, query, adminID))
}

func (r *LicenseRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM licenses WHERE license_key = $1)`, key).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check license key existence", zap.Error(err))
		return false, fmt.Errorf("database error on key existence check: %w", err)
	}
	return exists, nil
}

func (r *LicenseRepository) List(ctx context.Context) ([]*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query list of licenses", zap.Error(err))
		return nil, fmt.Errorf("database error on list licenses: %w", err)
	}
	defer rows.Close()
	return r.collectLicenses(rows)
}

func (r *LicenseRepository) ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE admin_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, adminID)
	if err != nil {
		r.logger.Error("Failed to query licenses by admin", zap.String("admin_id", adminID.String()), zap.Error(err))
		return nil, fmt.Errorf("database error on list licenses by admin: %w", err)
	}
	defer rows.Close()
	return r.collectLicenses(rows)
}

func (r *LicenseRepository) HasCurrentLicense(ctx context.Context, adminID uuid.UUID, email string) (bool, error) {
	query := `
        SELECT EXISTS(
            SELECT 1 FROM licenses
            WHERE (admin_id = $1 OR assigned_email = $2)
              AND status = 'active'
              AND is_active = TRUE
        )
    `
	var exists bool
	if err := r.db.QueryRow(ctx, query, adminID, email).Scan(&exists); err != nil {
		r.logger.Error("Failed to check for existing active license", zap.Error(err))
		return false, fmt.Errorf("database error on current license check: %w", err)
	}
	return exists, nil
}

func (r *LicenseRepository) HasUsableByAdmin(ctx context.Context, adminID uuid.UUID, now time.Time) (bool, error) {
	query := `
        SELECT EXISTS(
            SELECT 1 FROM licenses
            WHERE admin_id = $1
              AND is_active = TRUE
              AND (expiry_date IS NULL OR expiry_date > $2)
        )
    `
	var exists bool
	if err := r.db.QueryRow(ctx, query, adminID, now).Scan(&exists); err != nil {
		r.logger.Error("Failed to check for usable license by admin", zap.Error(err))
		return false, fmt.Errorf("database error on usable license check: %w", err)
	}
	return exists, nil
}

func (r *LicenseRepository) HasActiveByEmail(ctx context.Context, email string, now time.Time) (bool, error) {
	query := `
        SELECT EXISTS(
            SELECT 1 FROM licenses
            WHERE assigned_email = $1
              AND status = 'active'
              AND is_active = TRUE
              AND (expiry_date IS NULL OR expiry_date > $2)
        )
    `
	var exists bool
	if err := r.db.QueryRow(ctx, query, email, now).Scan(&exists); err != nil {
		r.logger.Error("Failed to check for active license by email", zap.Error(err))
		return false, fmt.Errorf("database error on active license check: %w", err)
	}
	return exists, nil
}

// Claim is a single conditional update so that two concurrent activation
// attempts against the same key cannot both succeed: only the statement that
// observes status='unused' with no owner reports an affected row.
func (r *LicenseRepository) Claim(ctx context.Context, key string, adminID uuid.UUID, email string) (bool, error) {
	query := `
        UPDATE licenses
        SET admin_id = $1, assigned_email = $2, status = 'active', is_active = TRUE, updated_at = NOW()
        WHERE license_key = $3 AND status = 'unused' AND admin_id IS NULL
    `
	cmdTag, err := r.db.Exec(ctx, query, adminID, email, key)
	if err != nil {
		r.logger.Error("Failed to claim license", zap.String("license_key", key), zap.Error(err))
		return false, fmt.Errorf("database error on claim license: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *LicenseRepository) ReactivateForOwner(ctx context.Context, key string, adminID uuid.UUID, email string) (bool, error) {
	query := `
        UPDATE licenses
        SET assigned_email = $1, status = 'active', is_active = TRUE, updated_at = NOW()
        WHERE license_key = $2 AND admin_id = $3
    `
	cmdTag, err := r.db.Exec(ctx, query, email, key, adminID)
	if err != nil {
		r.logger.Error("Failed to reactivate license for owner", zap.String("license_key", key), zap.Error(err))
		return false, fmt.Errorf("database error on reactivate license: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *LicenseRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE licenses SET is_active = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, query, active, id)
	if err != nil {
		r.logger.Error("Failed to update license active flag", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("database error on update license active flag: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update active flag, but no rows were affected", zap.String("id", id.String()))
		return fmt.Errorf("license with ID %s not found for update", id)
	}
	return nil
}

func (r *LicenseRepository) SetExpiry(ctx context.Context, id uuid.UUID, expiry sql.NullTime) error {
	query := `UPDATE licenses SET expiry_date = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, query, expiry, id)
	if err != nil {
		r.logger.Error("Failed to update license expiry", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("database error on update license expiry: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update expiry, but no rows were affected", zap.String("id", id.String()))
		return fmt.Errorf("license with ID %s not found for update", id)
	}
	return nil
}

func (r *LicenseRepository) Renew(ctx context.Context, id uuid.UUID, expiry time.Time) error {
	query := `
        UPDATE licenses
        SET expiry_date = $1, is_active = TRUE, status = 'active', updated_at = NOW()
        WHERE id = $2
    `
	cmdTag, err := r.db.Exec(ctx, query, expiry, id)
	if err != nil {
		r.logger.Error("Failed to renew license", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("database error on renew license: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to renew license, but no rows were affected", zap.String("id", id.String()))
		return fmt.Errorf("license with ID %s not found for renewal", id)
	}
	r.logger.Info("License renewed", zap.String("id", id.String()), zap.Time("expiry", expiry))
	return nil
}

func (r *LicenseRepository) DeactivateByAdmin(ctx context.Context, adminID uuid.UUID) error {
	query := `UPDATE licenses SET is_active = FALSE, updated_at = NOW() WHERE admin_id = $1`
	if _, err := r.db.Exec(ctx, query, adminID); err != nil {
		r.logger.Error("Failed to deactivate licenses for admin", zap.String("admin_id", adminID.String()), zap.Error(err))
		return fmt.Errorf("database error on deactivate licenses: %w", err)
	}
	return nil
}

func (r *LicenseRepository) ListExpiringWithin(ctx context.Context, days int) ([]*license.ExpiringLicense, error) {
	query := `
        SELECT
            a.id AS admin_id,
            a.email AS admin_email,
            l.id AS license_id,
            l.license_key,
            l.expiry_date,
            EXTRACT(DAY FROM l.expiry_date - NOW())::int AS days_remaining
        FROM licenses l
        JOIN accounts a ON l.admin_id = a.id
        WHERE l.is_active = TRUE
          AND l.expiry_date IS NOT NULL
          AND l.expiry_date > NOW()
          AND l.expiry_date <= NOW() + make_interval(days => $1)
        ORDER BY l.expiry_date ASC
    `
	rows, err := r.db.Query(ctx, query, days)
	if err != nil {
		r.logger.Error("Failed to query expiring licenses", zap.Error(err))
		return nil, fmt.Errorf("database error on list expiring licenses: %w", err)
	}
	defer rows.Close()

	expiring := make([]*license.ExpiringLicense, 0)
	for rows.Next() {
		var e license.ExpiringLicense
		if err := rows.Scan(&e.AdminID, &e.AdminEmail, &e.LicenseID, &e.LicenseKey, &e.ExpiryDate, &e.DaysRemaining); err != nil {
			r.logger.Error("Failed to scan expiring license row", zap.Error(err))
			return nil, fmt.Errorf("database scan error on expiring licenses: %w", err)
		}
		expiring = append(expiring, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error on expiring licenses: %w", err)
	}
	return expiring, nil
}

func (r *LicenseRepository) Summarize(ctx context.Context, warningDays int) (*license.Summary, error) {
	query := `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status = 'unused'),
            COUNT(*) FILTER (WHERE status = 'active'),
            COUNT(*) FILTER (WHERE is_active = FALSE),
            COUNT(*) FILTER (
                WHERE is_active = TRUE
                  AND expiry_date IS NOT NULL
                  AND expiry_date > NOW()
                  AND expiry_date <= NOW() + make_interval(days => $1)
            )
        FROM licenses
    `
	var s license.Summary
	if err := r.db.QueryRow(ctx, query, warningDays).Scan(&s.Total, &s.Unused, &s.Assigned, &s.Inactive, &s.ExpiringSoon); err != nil {
		r.logger.Error("Failed to summarize licenses", zap.Error(err))
		return nil, fmt.Errorf("database error on license summary: %w", err)
	}

	next, err := r.scanLicense(r.db.QueryRow(ctx, `
        SELECT `+licenseColumns+` FROM licenses
        WHERE is_active = TRUE AND expiry_date IS NOT NULL AND expiry_date > NOW()
        ORDER BY expiry_date ASC
        LIMIT 1
    `))
	if err != nil {
		return nil, err
	}
	s.NextToExpire = next

	return &s, nil
}

func (r *LicenseRepository) collectLicenses(rows pgx.Rows) ([]*license.License, error) {
	licenses := make([]*license.License, 0)
	for rows.Next() {
		var lic license.License
		err := rows.Scan(
			&lic.ID,
			&lic.LicenseKey,
			&lic.AdminID,
			&lic.AssignedEmail,
			&lic.Status,
			&lic.IsActive,
			&lic.ExpiryDate,
			&lic.CreatedAt,
			&lic.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan license row during list", zap.Error(err))
			return nil, fmt.Errorf("database scan error during list: %w", err)
		}
		licenses = append(licenses, &lic)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating license rows", zap.Error(err))
		return nil, fmt.Errorf("database iteration error on list licenses: %w", err)
	}
	return licenses, nil
}

func (r *LicenseRepository) scanLicense(row pgx.Row) (*license.License, error) {
	var lic license.License
	err := row.Scan(
		&lic.ID,
		&lic.LicenseKey,
		&lic.AdminID,
		&lic.AssignedEmail,
		&lic.Status,
		&lic.IsActive,
		&lic.ExpiryDate,
		&lic.CreatedAt,
		&lic.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to scan license row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return &lic, nil
}
