package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/shaid-7908/display-doctor-v2/internal/jobs"
)

// PDFRenderer renders a stored invoice to PDF bytes, implemented by the
// invoices package.
type PDFRenderer interface {
	Render(ctx context.Context, invoiceID int64) ([]byte, error)
}

// InvoicePDFJob pre-renders invoice PDFs right after billing so the first
// download does not wait on the converter.
type InvoicePDFJob struct {
	Renderer PDFRenderer
	Dir      string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// Handle renders the invoice and caches the result under Dir.
func (j *InvoicePDFJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Renderer == nil {
		return errors.New("invoice pdf: renderer not configured")
	}
	var payload InvoicePDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.InvoiceID == 0 {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTypeInvoicePDF)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	data, err := j.Renderer.Render(ctx, payload.InvoiceID)
	if err != nil {
		resultErr = err
		if j.Logger != nil {
			j.Logger.Error("render invoice pdf", slog.Int64("invoice_id", payload.InvoiceID), slog.Any("error", err))
		}
		return resultErr
	}

	if j.Dir != "" {
		if err := os.MkdirAll(j.Dir, 0o755); err != nil {
			resultErr = err
			return resultErr
		}
		path := filepath.Join(j.Dir, fmt.Sprintf("invoice-%d.pdf", payload.InvoiceID))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			resultErr = err
			return resultErr
		}
	}

	if j.Logger != nil {
		j.Logger.Info("invoice pdf rendered",
			slog.Int64("invoice_id", payload.InvoiceID),
			slog.Int("bytes", len(data)),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return resultErr
}
