package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDebtOverdueScan flips past-due active debts to overdue.
	TaskDebtOverdueScan = "debts:overdue_scan"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "shared:idempotency_cleanup"
)

// DebtOverdueScanPayload parameterises one scan run. A zero AsOf means "now".
type DebtOverdueScanPayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewDebtOverdueScanTask constructs an Asynq task.
func NewDebtOverdueScanTask(payload DebtOverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDebtOverdueScan, data), nil
}
