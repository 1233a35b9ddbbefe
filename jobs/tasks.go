package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeInvoicePDF renders an invoice PDF ahead of download.
	TaskTypeInvoicePDF = "invoice:pdf"
	// TaskTypeSLAScan sweeps for issues stuck past their service window.
	TaskTypeSLAScan = "sla:scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// InvoicePDFPayload identifies the invoice to render.
type InvoicePDFPayload struct {
	InvoiceID int64 `json:"invoice_id"`
}

// NewInvoicePDFTask constructs an Asynq task.
func NewInvoicePDFTask(payload InvoicePDFPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeInvoicePDF, data), nil
}

// SLAScanPayload tunes the overdue sweep.
type SLAScanPayload struct {
	// StaleAfterHours flags issues that have sat in a pre-visit status
	// longer than this. Zero means the default of 24.
	StaleAfterHours int `json:"stale_after_hours"`
}

// NewSLAScanTask constructs an Asynq task.
func NewSLAScanTask(payload SLAScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSLAScan, data), nil
}
