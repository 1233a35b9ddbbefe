package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/shaid-7908/display-doctor-v2/internal/jobs"
)

const defaultStaleAfter = 24 * time.Hour

// Status sets driving the sweep. Both must stay within the issue lifecycle
// vocabulary: intake statuses age against created_at, pre-arrival statuses
// against the scheduled visit start.
var (
	staleIntakeStatuses = []string{"new", "screening"}
	preArrivalStatuses  = []string{"assigned", "scheduled", "en_route"}
)

// SLAScanJob sweeps the issue backlog for tickets that are stuck: intake
// statuses older than the stale window, or visits whose scheduled start has
// passed without the technician going on site.
type SLAScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSLAScanJob initialises the SLA scan handler.
func NewSLAScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *SLAScanJob {
	return &SLAScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type overdueIssue struct {
	ID       int64
	Code     string
	Status   string
	Priority string
	Reason   string
}

// Handle executes the sweep.
func (j *SLAScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("sla scan: handler not configured")
	}
	var payload SLAScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	staleAfter := defaultStaleAfter
	if payload.StaleAfterHours > 0 {
		staleAfter = time.Duration(payload.StaleAfterHours) * time.Hour
	}

	tracker := j.metrics().Track(TaskTypeSLAScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	overdue, err := j.scan(ctx, start, staleAfter)
	if err != nil {
		resultErr = err
		j.logger().Error("sla scan failed", slog.Any("error", err))
		return resultErr
	}

	for _, issue := range overdue {
		j.logger().Warn("issue overdue",
			slog.String("code", issue.Code),
			slog.String("status", issue.Status),
			slog.String("priority", issue.Priority),
			slog.String("reason", issue.Reason),
		)
		j.metrics().AddOverdueIssues(issue.Status, issue.Priority, 1)
	}

	j.logger().Info("completed sla scan",
		slog.Int("overdue", len(overdue)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

// scan finds overdue issues and stamps each with an SLA_OVERDUE audit entry.
// An issue already flagged within the stale window is skipped so repeated
// sweeps do not spam the timeline.
func (j *SLAScanJob) scan(ctx context.Context, now time.Time, staleAfter time.Duration) ([]overdueIssue, error) {
	if j.Pool == nil {
		return nil, errors.New("sla scan: pool not configured")
	}
	cutoff := now.Add(-staleAfter)

	rows, err := j.Pool.Query(ctx, `
		SELECT id, code, status, priority,
		       CASE WHEN status = ANY($3) THEN 'stale intake' ELSE 'missed visit' END
		FROM issues
		WHERE is_deleted = FALSE
		  AND (
		        (status = ANY($3) AND created_at < $1)
		     OR (status = ANY($4) AND scheduled_start IS NOT NULL AND scheduled_start < $2)
		  )
		  AND NOT EXISTS (
		        SELECT 1 FROM audit_logs al
		        WHERE al.entity = 'issue' AND al.entity_id = issues.id::text
		          AND al.action = 'SLA_OVERDUE' AND al.at > $1
		  )
		ORDER BY created_at`, cutoff, now, staleIntakeStatuses, preArrivalStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overdue []overdueIssue
	for rows.Next() {
		var issue overdueIssue
		if err := rows.Scan(&issue.ID, &issue.Code, &issue.Status, &issue.Priority, &issue.Reason); err != nil {
			return nil, err
		}
		overdue = append(overdue, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, issue := range overdue {
		meta, err := json.Marshal(map[string]any{"code": issue.Code, "reason": issue.Reason, "status": issue.Status})
		if err != nil {
			return nil, err
		}
		if _, err := j.Pool.Exec(ctx, `
			INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, at)
			VALUES (0, 'SLA_OVERDUE', 'issue', $1, $2, $3)`,
			issue.ID, meta, now); err != nil {
			return nil, err
		}
	}
	return overdue, nil
}

func (j *SLAScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *SLAScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return nil
}

func (j *SLAScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
