package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PGRepository reads the activity log from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) TimelineWindow(ctx context.Context, scope shared.Scope, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	query, args := buildTimelineQuery(scope, filters)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PGRepository) TimelineAll(ctx context.Context, scope shared.Scope, filters TimelineFilters) ([]Entry, error) {
	query, args := buildTimelineQuery(scope, filters)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// buildTimelineQuery assembles the filtered select. Every filter value travels
// as a bind parameter; only fixed predicate fragments are concatenated.
func buildTimelineQuery(scope shared.Scope, filters TimelineFilters) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, actor_id, action, entity, entity_id, meta, occurred_at
FROM activity_logs WHERE company_id=$1`)
	args := []any{scope.CompanyID}
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		fmt.Fprintf(&sb, " AND occurred_at >= $%d", len(args))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		fmt.Fprintf(&sb, " AND occurred_at <= $%d", len(args))
	}
	if filters.ActorID != 0 {
		args = append(args, filters.ActorID)
		fmt.Fprintf(&sb, " AND actor_id = $%d", len(args))
	}
	if filters.Entity != "" {
		args = append(args, filters.Entity)
		fmt.Fprintf(&sb, " AND entity = $%d", len(args))
	}
	if filters.Action != "" {
		args = append(args, filters.Action)
		fmt.Fprintf(&sb, " AND action = $%d", len(args))
	}
	sb.WriteString(" ORDER BY occurred_at DESC, id DESC")
	return sb.String(), args
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &meta, &e.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
