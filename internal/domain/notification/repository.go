package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListForRole returns notifications addressed to the role. When userID is
	// set, rows targeted at other specific users are filtered out.
	ListForRole(ctx context.Context, role string, userID uuid.NullUUID) ([]*Notification, error)
}
