package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stubRepo struct {
	entries    []Entry
	lastLimit  int
	lastOffset int
	allCalls   int
}

func (s *stubRepo) TimelineWindow(ctx context.Context, scope shared.Scope, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	if offset >= len(s.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	return s.entries[offset:end], nil
}

func (s *stubRepo) TimelineAll(ctx context.Context, scope shared.Scope, filters TimelineFilters) ([]Entry, error) {
	s.allCalls++
	return s.entries, nil
}

func makeEntries(n int) []Entry {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Entry{
			ID:       int64(n - i),
			ActorID:  7,
			Action:   "sales.record",
			Entity:   "invoice",
			EntityID: "INV-0001",
			At:       at.Add(-time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(5)}
	svc := NewService(repo)
	scope := shared.Scope{CompanyID: 1}

	result, err := svc.Timeline(context.Background(), scope, TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)
	require.Equal(t, 3, repo.lastLimit, "fetches one extra row to probe the next page")
	require.Equal(t, 0, repo.lastOffset)

	result, err = svc.Timeline(context.Background(), scope, TimelineFilters{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.PrevPage)
	require.Equal(t, 4, repo.lastOffset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(1)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), shared.Scope{CompanyID: 1}, TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, result.Paging.PageSize)

	result, err = svc.Timeline(context.Background(), shared.Scope{CompanyID: 1}, TimelineFilters{})
	require.NoError(t, err)
	require.Equal(t, defaultPageSize, result.Paging.PageSize)
	require.Equal(t, 1, result.Paging.Page)
}

func TestTimelineRequiresScope(t *testing.T) {
	svc := NewService(&stubRepo{})
	_, err := svc.Timeline(context.Background(), shared.Scope{}, TimelineFilters{})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestExportCSV(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(2)}
	svc := NewService(repo)

	data, err := svc.ExportCSV(context.Background(), shared.Scope{CompanyID: 1}, TimelineFilters{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "at,actor_id,action,entity,entity_id", lines[0])
	require.Contains(t, lines[1], "sales.record")
}
