package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/procurahq/license-api/internal/domain/account"
	"github.com/procurahq/license-api/internal/domain/license"
	"github.com/procurahq/license-api/internal/domain/notification"
	"github.com/procurahq/license-api/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// dedupeTTL keeps the per-license reminder marker alive long enough that an
// hourly sweep notifies at most once a day per license.
const dedupeTTL = 24 * time.Hour

type ExpirySweepHandler struct {
	repo     license.Repository
	notifier service.Notifier
	rdb      *redis.Client
	logger   *zap.Logger
}

func NewExpirySweepHandler(repo license.Repository, notifier service.Notifier, rdb *redis.Client, logger *zap.Logger) *ExpirySweepHandler {
	return &ExpirySweepHandler{
		repo:     repo,
		notifier: notifier,
		rdb:      rdb,
		logger:   logger.Named("ExpirySweepHandler"),
	}
}

func (h *ExpirySweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeLicenseExpirySweep {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p ExpirySweepPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal expiry sweep payload", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}
	if p.WarningDays <= 0 {
		p.WarningDays = 7
	}

	h.logger.Info("Running license expiry sweep", zap.Int("warning_days", p.WarningDays))

	expiring, err := h.repo.ListExpiringWithin(ctx, p.WarningDays)
	if err != nil {
		h.logger.Error("Failed to list expiring licenses", zap.Error(err))
		return fmt.Errorf("repository error listing expiring licenses: %w", err)
	}

	notified := 0
	for _, lic := range expiring {
		fresh, err := h.markNotified(ctx, lic.LicenseID)
		if err != nil {
			h.logger.Warn("Dedupe check failed, emitting anyway",
				zap.String("license_id", lic.LicenseID.String()), zap.Error(err))
		} else if !fresh {
			continue
		}

		message := fmt.Sprintf("License %s for %s expires in %d day(s)",
			lic.LicenseKey, lic.AdminEmail, lic.DaysRemaining)

		h.notifier.Emit(notification.TypeLicenseExpiring, message, string(account.RoleSuperadmin),
			uuid.NullUUID{}, uuid.NullUUID{UUID: lic.LicenseID, Valid: true})
		h.notifier.Emit(notification.TypeLicenseExpiring, message, string(account.RoleAdmin),
			uuid.NullUUID{UUID: lic.AdminID, Valid: true}, uuid.NullUUID{UUID: lic.LicenseID, Valid: true})
		notified++
	}

	h.logger.Info("License expiry sweep finished",
		zap.Int("expiring_licenses", len(expiring)), zap.Int("notified", notified))
	return nil
}

func (h *ExpirySweepHandler) markNotified(ctx context.Context, licenseID uuid.UUID) (bool, error) {
	key := fmt.Sprintf("notify:expiring:%s:%s", licenseID, time.Now().UTC().Format("2006-01-02"))
	return h.rdb.SetNX(ctx, key, 1, dedupeTTL).Result()
}
