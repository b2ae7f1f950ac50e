package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for accounts. Lookups return
// (nil, nil) when no row matches.
type Repository interface {
	Create(ctx context.Context, acct *Account) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	ListByRole(ctx context.Context, role Role) ([]*Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
