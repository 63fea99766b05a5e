package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubMarker struct {
	calls []time.Time
	count int64
}

func (s *stubMarker) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	s.calls = append(s.calls, asOf)
	return s.count, nil
}

func TestOverdueScanRunsMarker(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	marker := &stubMarker{count: 3}
	job := NewOverdueScanJob(marker, rdb, nil)

	asOf := time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)
	task, err := NewDebtOverdueScanTask(DebtOverdueScanPayload{AsOf: asOf})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, marker.calls, 1)
	require.Equal(t, asOf, marker.calls[0])

	// The lock is released after the run, so a later run proceeds.
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, marker.calls, 2)
}

func TestOverdueScanSkipsWhenLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, mr.Set(overdueScanLockKey, "held"))

	marker := &stubMarker{}
	job := NewOverdueScanJob(marker, rdb, nil)

	task, err := NewDebtOverdueScanTask(DebtOverdueScanPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Empty(t, marker.calls, "a held lock must skip the scan")
}

func TestOverdueScanDefaultsAsOf(t *testing.T) {
	marker := &stubMarker{}
	job := NewOverdueScanJob(marker, nil, nil)
	now := time.Date(2025, 7, 2, 2, 0, 0, 0, time.UTC)
	job.WithClock(func() time.Time { return now })

	task, err := NewDebtOverdueScanTask(DebtOverdueScanPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, marker.calls, 1)
	require.Equal(t, now, marker.calls[0])
}
