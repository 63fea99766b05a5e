package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Repository provides read access to the activity log.
type Repository interface {
	TimelineWindow(ctx context.Context, scope shared.Scope, filters TimelineFilters, limit, offset int) ([]Entry, error)
	TimelineAll(ctx context.Context, scope shared.Scope, filters TimelineFilters) ([]Entry, error)
}

// Service coordinates audit timeline reads. Exports are collapsed through a
// singleflight group so concurrent identical requests share one query.
type Service struct {
	repo   Repository
	export singleflight.Group
}

// NewService builds the audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of activity for the caller's company. It fetches
// one row beyond the page size to detect whether a next page exists.
func (s *Service) Timeline(ctx context.Context, scope shared.Scope, filters TimelineFilters) (Result, error) {
	if err := scope.Validate(); err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	entries, err := s.repo.TimelineWindow(ctx, scope, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(entries) > pageSize
	if hasNext {
		entries = entries[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Entries: entries, Paging: paging}, nil
}

// ExportCSV renders the full filtered timeline as CSV.
func (s *Service) ExportCSV(ctx context.Context, scope shared.Scope, filters TimelineFilters) ([]byte, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	key := exportKey(scope, filters)
	v, err, _ := s.export.Do(key, func() (any, error) {
		entries, err := s.repo.TimelineAll(ctx, scope, filters)
		if err != nil {
			return nil, err
		}
		return renderCSV(entries)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func exportKey(scope shared.Scope, f TimelineFilters) string {
	return fmt.Sprintf("%d|%d|%d|%s|%s|%d|%d",
		scope.CompanyID, f.From.Unix(), f.To.Unix(), f.Entity, f.Action, f.ActorID, f.PageSize)
}

func renderCSV(entries []Entry) ([]byte, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"at", "actor_id", "action", "entity", "entity_id"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		record := []string{
			e.At.Format("2006-01-02 15:04:05"),
			strconv.FormatInt(e.ActorID, 10),
			e.Action,
			e.Entity,
			e.EntityID,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}
