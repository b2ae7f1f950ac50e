package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/procurahq/license-api/internal/domain/account"
	"github.com/procurahq/license-api/internal/domain/notification"
	"go.uber.org/zap"
)

// Notifier records audit/notification events for state-changing operations.
// Emission is best-effort: a failed insert must never fail the business
// operation that triggered it.
type Notifier interface {
	Emit(typ, message, targetRole string, targetUserID, relatedLicenseID uuid.NullUUID)
}

type NotificationEmitter struct {
	repo   notification.Repository
	logger *zap.Logger
}

func NewNotificationEmitter(repo notification.Repository, logger *zap.Logger) *NotificationEmitter {
	return &NotificationEmitter{
		repo:   repo,
		logger: logger.Named("NotificationEmitter"),
	}
}

var _ Notifier = (*NotificationEmitter)(nil)

// ListForCaller returns the notifications visible to the caller: rows
// addressed to their role, and for admins only their own or role-wide ones.
func (e *NotificationEmitter) ListForCaller(ctx context.Context, caller *Claims) ([]*notification.Notification, error) {
	userID := uuid.NullUUID{}
	if caller.Role == account.RoleAdmin {
		userID = uuid.NullUUID{UUID: caller.UserID, Valid: true}
	}
	return e.repo.ListForRole(ctx, string(caller.Role), userID)
}

// Emit writes the notification from a detached goroutine with its own timeout
// so the caller never blocks on, or observes, notification storage failures.
func (e *NotificationEmitter) Emit(typ, message, targetRole string, targetUserID, relatedLicenseID uuid.NullUUID) {
	n := &notification.Notification{
		Type:             typ,
		Message:          message,
		TargetRole:       targetRole,
		TargetUserID:     targetUserID,
		RelatedLicenseID: relatedLicenseID,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := e.repo.Create(ctx, n); err != nil {
			e.logger.Error("Failed to record notification",
				zap.String("type", typ),
				zap.String("target_role", targetRole),
				zap.Error(err),
			)
		}
	}()
}
