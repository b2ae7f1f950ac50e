package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/procurahq/license-api/internal/domain/account"
	"github.com/procurahq/license-api/internal/ierr"
	"go.uber.org/zap"
)

const accountColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

type AccountRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAccountRepository(db *pgxpool.Pool, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger.Named("AccountRepository"),
	}
}

var _ account.Repository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(ctx context.Context, acct *account.Account) (uuid.UUID, error) {
	query := `
        INSERT INTO accounts (email, password_hash, role, is_active)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	var insertedID uuid.UUID
	err := r.db.QueryRow(ctx, query,
		acct.Email,
		acct.PasswordHash,
		acct.Role,
		acct.IsActive,
	).Scan(&insertedID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create account with duplicate email", zap.String("email", acct.Email))
			return uuid.Nil, fmt.Errorf("%w: user with this email already exists", ierr.ErrConflict)
		}
		r.logger.Error("Failed to create account in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create account: %w", err)
	}

	r.logger.Info("Account created", zap.String("id", insertedID.String()), zap.String("role", string(acct.Role)))
	return insertedID, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.db.QueryRow(ctx, query, id))
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanAccount(r.db.QueryRow(ctx, query, email))
}

func (r *AccountRepository) ListByRole(ctx context.Context, role account.Role) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		r.logger.Error("Failed to query accounts by role", zap.String("role", string(role)), zap.Error(err))
		return nil, fmt.Errorf("database error on list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*account.Account, 0)
	for rows.Next() {
		var acct account.Account
		err := rows.Scan(
			&acct.ID,
			&acct.Email,
			&acct.PasswordHash,
			&acct.Role,
			&acct.IsActive,
			&acct.CreatedAt,
			&acct.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan account row during list", zap.Error(err))
			return nil, fmt.Errorf("database scan error during account list: %w", err)
		}
		accounts = append(accounts, &acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error on list accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE accounts SET is_active = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, query, active, id)
	if err != nil {
		r.logger.Error("Failed to update account active flag", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("database error on update account active flag: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update account, but no rows were affected", zap.String("id", id.String()))
		return fmt.Errorf("account with ID %s not found for update", id)
	}
	return nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*account.Account, error) {
	var acct account.Account
	err := row.Scan(
		&acct.ID,
		&acct.Email,
		&acct.PasswordHash,
		&acct.Role,
		&acct.IsActive,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to scan account row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return &acct, nil
}
