package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	ApprovalApprove ApprovalAction = "APPROVE"
	ApprovalReject  ApprovalAction = "REJECT"
)

// ApprovalModuleReport scopes quotation approvals in the approvals table.
const ApprovalModuleReport = "issue_report"

// ApprovalLog is one recorded approval decision.
type ApprovalLog struct {
	ID      int64
	Module  string
	RefID   int64
	ActorID int64
	Action  ApprovalAction
	Note    string
	At      time.Time
}

// ApprovalRecorder keeps the who-approved-what trail separate from the
// entity tables, so a report row never loses its decision history.
type ApprovalRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewApprovalRecorder(pool *pgxpool.Pool, logger *slog.Logger) *ApprovalRecorder {
	return &ApprovalRecorder{pool: pool, logger: logger}
}

// Record persists one decision. An unset At defaults to the database clock.
func (r *ApprovalRecorder) Record(ctx context.Context, log ApprovalLog) error {
	if r == nil {
		return errors.New("approval recorder not initialised")
	}
	if log.Module == "" || log.RefID == 0 || log.ActorID == 0 || log.Action == "" {
		return errors.New("approval module, ref, actor and action required")
	}
	var at any
	if !log.At.IsZero() {
		at = log.At
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO approvals (module, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.Module, log.RefID, log.ActorID, string(log.Action), log.Note, at)
	if err != nil {
		r.logger.Error("record approval", slog.String("module", log.Module), slog.Int64("ref_id", log.RefID), slog.Any("error", err))
	}
	return err
}

// List returns the decisions for one entity, oldest first.
func (r *ApprovalRecorder) List(ctx context.Context, module string, refID int64) ([]ApprovalLog, error) {
	if r == nil {
		return nil, errors.New("approval recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, module, ref_id, actor_id, action, note, at
FROM approvals WHERE module = $1 AND ref_id = $2 ORDER BY at`, module, refID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ApprovalLog
	for rows.Next() {
		var l ApprovalLog
		var action string
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &l.ActorID, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = ApprovalAction(action)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
