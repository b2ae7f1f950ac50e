package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/procurahq/license-api/internal/domain/notification"
	"go.uber.org/zap"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger.Named("NotificationRepository"),
	}
}

var _ notification.Repository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `
        INSERT INTO notifications (type, message, target_role, target_user_id, related_license_id)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.db.Exec(ctx, query,
		n.Type,
		n.Message,
		n.TargetRole,
		n.TargetUserID,
		n.RelatedLicenseID,
	)
	if err != nil {
		r.logger.Error("Failed to insert notification", zap.String("type", n.Type), zap.Error(err))
		return fmt.Errorf("database error on create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListForRole(ctx context.Context, role string, userID uuid.NullUUID) ([]*notification.Notification, error) {
	query := `
        SELECT id, type, message, target_role, target_user_id, related_license_id, created_at
        FROM notifications
        WHERE target_role = $1
          AND ($2::uuid IS NULL OR target_user_id IS NULL OR target_user_id = $2)
        ORDER BY created_at DESC
        LIMIT 100
    `
	rows, err := r.db.Query(ctx, query, role, userID)
	if err != nil {
		r.logger.Error("Failed to query notifications", zap.String("role", role), zap.Error(err))
		return nil, fmt.Errorf("database error on list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*notification.Notification, 0)
	for rows.Next() {
		var n notification.Notification
		err := rows.Scan(
			&n.ID,
			&n.Type,
			&n.Message,
			&n.TargetRole,
			&n.TargetUserID,
			&n.RelatedLicenseID,
			&n.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan notification row", zap.Error(err))
			return nil, fmt.Errorf("database scan error on notifications: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error on notifications: %w", err)
	}
	return notifications, nil
}
