package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskKardexIntegrity replays kardex chains and reports breaks.
	TaskKardexIntegrity = "kardex:integrity"
	// TaskLowStockScan reports balances under their minimum threshold.
	TaskLowStockScan = "stock:low_scan"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// CompanyPayload scopes a job to one company.
type CompanyPayload struct {
	CompanyID int64 `json:"company_id"`
}

// NewKardexIntegrityTask constructs the integrity scan task.
func NewKardexIntegrityTask(payload CompanyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKardexIntegrity, data), nil
}

// NewLowStockScanTask constructs the low-stock scan task.
func NewLowStockScanTask(payload CompanyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
