package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeLicenseExpirySweep = "license:expiry:sweep"
)

type ExpirySweepPayload struct {
	WarningDays int `json:"warning_days"`
}

func NewLicenseExpirySweepTask(warningDays int) (*asynq.Task, error) {
	payload, err := json.Marshal(ExpirySweepPayload{WarningDays: warningDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeLicenseExpirySweep, payload, asynq.Queue("low")), nil
}
