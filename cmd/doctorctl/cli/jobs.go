package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/shaid-7908/display-doctor-v2/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr, redisPassword string) (*JobsCLI, error) {
	opts := asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword}
	return &JobsCLI{
		client:    asynq.NewClient(opts),
		inspector: asynq.NewInspector(opts),
	}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. The argument is job specific:
// the stale-after window in hours for sla:scan, the invoice id for
// invoice:pdf.
func (c *JobsCLI) Trigger(ctx context.Context, name, arg string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskTypeSLAScan:
		hours := 0
		if arg != "" {
			hours, err = strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("jobs cli: stale-after hours: %w", err)
			}
		}
		task, err = jobs.NewSLAScanTask(jobs.SLAScanPayload{StaleAfterHours: hours})
	case jobs.TaskTypeInvoicePDF:
		id, convErr := strconv.ParseInt(arg, 10, 64)
		if convErr != nil {
			return nil, fmt.Errorf("jobs cli: invoice id: %w", convErr)
		}
		task, err = jobs.NewInvoicePDFTask(jobs.InvoicePDFPayload{InvoiceID: id})
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = int(info.Pending)
		stats.Active = int(info.Active)
		stats.Scheduled = int(info.Scheduled)
		stats.Retry = int(info.Retry)
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}
