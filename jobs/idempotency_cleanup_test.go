package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubCleaner struct {
	retentions []time.Duration
	err        error
}

func (s *stubCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	s.retentions = append(s.retentions, olderThan)
	return s.err
}

func TestIdempotencyCleanupUsesConfiguredTTL(t *testing.T) {
	cleaner := &stubCleaner{}
	job := NewIdempotencyCleanupJob(cleaner, 48*time.Hour, nil)

	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	require.Len(t, cleaner.retentions, 1)
	require.Equal(t, 48*time.Hour, cleaner.retentions[0])
}

func TestIdempotencyCleanupDefaultsTTL(t *testing.T) {
	cleaner := &stubCleaner{}
	job := NewIdempotencyCleanupJob(cleaner, 0, nil)

	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	require.Len(t, cleaner.retentions, 1)
	require.Equal(t, 24*time.Hour, cleaner.retentions[0])
}
