package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	overdueScanLockKey = "meridian:lock:debts_overdue_scan"
	overdueScanLockTTL = 5 * time.Minute
)

// OverdueMarker is the slice of the debts service the scan needs.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// OverdueScanJob walks active debts and marks past-due ones overdue. A redis
// lock keeps overlapping runs from double-scanning when several workers share
// the queue.
type OverdueScanJob struct {
	Debts  OverdueMarker
	Redis  *redis.Client
	Logger *slog.Logger
	clock  func() time.Time
}

// NewOverdueScanJob wires dependencies for the scan handler.
func NewOverdueScanJob(debts OverdueMarker, rdb *redis.Client, logger *slog.Logger) *OverdueScanJob {
	return &OverdueScanJob{
		Debts:  debts,
		Redis:  rdb,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (j *OverdueScanJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}

// Handle executes one scan run.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Debts == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload DebtOverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}

	logger := j.logger().With(slog.Time("as_of", asOf))

	if j.Redis != nil {
		acquired, err := j.Redis.SetNX(ctx, overdueScanLockKey, asOf.Format(time.RFC3339), overdueScanLockTTL).Result()
		if err != nil {
			return err
		}
		if !acquired {
			logger.Info("scan already running, skipping")
			return nil
		}
		defer func() {
			if err := j.Redis.Del(context.WithoutCancel(ctx), overdueScanLockKey).Err(); err != nil {
				logger.Warn("release scan lock", slog.Any("error", err))
			}
		}()
	}

	start := j.now()
	logger.Info("starting overdue scan")
	marked, err := j.Debts.MarkOverdue(ctx, asOf)
	if err != nil {
		logger.Error("overdue scan failed", slog.Any("error", err))
		return err
	}
	logger.Info("completed overdue scan",
		slog.Int64("marked", marked),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDebtOverdueScan))
	}
	return slog.Default().With(slog.String("job", TaskDebtOverdueScan))
}

func (j *OverdueScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
