package audit

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides read access to audit_logs.
type Repository interface {
	TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error)
	TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error)
}

// PGRepository reads the timeline from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineSelect = `
SELECT al.at, al.actor_id, COALESCE(u.name, ''), al.action, al.entity, al.entity_id,
       COALESCE(i.code, ''), al.meta
FROM audit_logs al
LEFT JOIN users u ON u.id = al.actor_id
LEFT JOIN issues i ON al.entity = 'issue' AND i.id::text = al.entity_id`

// TimelineWindow returns one page of events, newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	where, args := timelineFilters(filters)
	args = append(args, limit)
	query := timelineSelect + where + ` ORDER BY al.at DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))
	return r.query(ctx, query, args)
}

// TimelineAll returns every matching event for exports.
func (r *PGRepository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	where, args := timelineFilters(filters)
	return r.query(ctx, timelineSelect+where+` ORDER BY al.at DESC`, args)
}

func timelineFilters(filters TimelineFilters) (string, []any) {
	where := ` WHERE 1=1`
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		where += ` AND ` + clause + `$` + strconv.Itoa(len(args))
	}
	if !filters.From.IsZero() {
		add(`al.at >= `, filters.From)
	}
	if !filters.To.IsZero() {
		add(`al.at <= `, filters.To)
	}
	if filters.ActorID != 0 {
		add(`al.actor_id = `, filters.ActorID)
	}
	if filters.Entity != "" {
		add(`al.entity = `, filters.Entity)
	}
	if filters.EntityID != "" {
		add(`al.entity_id = `, filters.EntityID)
	}
	if filters.IssueCode != "" {
		// Issue events carry the code in meta as "code", downstream report
		// and invoice events as "issue_code".
		args = append(args, filters.IssueCode)
		n := strconv.Itoa(len(args))
		where += ` AND (i.code = $` + n + ` OR al.meta->>'code' = $` + n + ` OR al.meta->>'issue_code' = $` + n + `)`
	}
	if filters.Action != "" {
		add(`al.action = `, filters.Action)
	}
	return where, args
}

func (r *PGRepository) query(ctx context.Context, query string, args []any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.At, &row.ActorID, &row.ActorName, &row.Action, &row.Entity, &row.EntityID, &row.IssueCode, &row.Meta); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
