package invoices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shaid-7908/display-doctor-v2/internal/issues"
	"github.com/shaid-7908/display-doctor-v2/internal/reports"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// IssuePort is the slice of the issue service the generator needs.
type IssuePort interface {
	GetByID(ctx context.Context, id int64) (*issues.Issue, error)
	TransitionByID(ctx context.Context, id int64, next issues.Status, actorID int64, note string) (*issues.Issue, error)
}

// ReportPort is the slice of the report workflow the generator needs.
type ReportPort interface {
	GetByIssueID(ctx context.Context, issueID int64) (*reports.Report, error)
	MarkBillGenerated(ctx context.Context, id int64) error
	Close(ctx context.Context, id int64) error
}

// IdempotencyPort reused from shared.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Enqueuer schedules background work after a successful mutation.
type Enqueuer interface {
	EnqueueInvoicePDF(ctx context.Context, invoiceID int64) error
	EnqueueMail(ctx context.Context, to, subject, body string) error
}

const idempotencyModule = "invoice_generate"

// Service handles invoice generation and payment tracking.
type Service struct {
	repo        RepositoryPort
	issues      IssuePort
	reports     ReportPort
	idempotency IdempotencyPort
	audit       AuditPort
	enqueuer    Enqueuer
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, issuePort IssuePort, reportPort ReportPort, idem IdempotencyPort, audit AuditPort, enqueuer Enqueuer) *Service {
	return &Service{repo: repo, issues: issuePort, reports: reportPort, idempotency: idem, audit: audit, enqueuer: enqueuer}
}

// Generate bills an issue. Preconditions run in a fixed order, each with its
// own failure: an existing invoice, then a missing or unapproved report, then
// a subtotal under the approved quotation. On success the report moves to
// bill-generated and the issue to awaiting_payment.
func (s *Service) Generate(ctx context.Context, input GenerateInput) (*Invoice, error) {
	issue, err := s.issues.GetByID(ctx, input.IssueID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByIssueID(ctx, issue.ID); err == nil {
		return nil, fmt.Errorf("issue %s: %w", issue.Code, ErrInvoiceAlreadyExists)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	report, err := s.reports.GetByIssueID(ctx, issue.ID)
	if err != nil {
		return nil, err
	}
	if !report.IsApproved || report.FinalQuotation <= 0 {
		return nil, fmt.Errorf("issue %s has no approved quotation: %w", issue.Code, reports.ErrReportNotFound)
	}

	subtotal, tax, final := Totals(input.LabourCharge, input.PartsCost, input.VisitCharge, input.Discount)
	if subtotal < report.FinalQuotation {
		return nil, fmt.Errorf("subtotal %.2f below quotation %.2f: %w",
			subtotal, report.FinalQuotation, ErrSubtotalBelowQuotation)
	}

	cascade := issue.Status != issues.StatusAwaitingPay
	if cascade && !issues.CanTransition(issue.Status, issues.StatusAwaitingPay) {
		return nil, issues.ErrInvalidTransition
	}

	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, idempotencyModule); err != nil {
			return nil, err
		}
	}

	invoice := &Invoice{
		IssueID:        issue.ID,
		IssueCode:      issue.Code,
		ReportID:       report.ID,
		CustomerName:   issue.Contact.Name,
		CustomerPhone:  issue.Contact.Phone,
		CustomerAddr:   issue.Contact.Address,
		DeviceType:     issue.Device.Type,
		DeviceBrand:    issue.Device.Brand,
		DeviceModel:    issue.Device.Model,
		LabourCharge:   input.LabourCharge,
		PartsCost:      input.PartsCost,
		VisitCharge:    input.VisitCharge,
		Discount:       input.Discount,
		FinalQuotation: report.FinalQuotation,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		FinalAmount:    final,
		WarrantyMonths: input.WarrantyMonths,
		CreatedByID:    input.CreatedByID,
	}
	if input.WarrantyMonths > 0 {
		until := time.Now().AddDate(0, input.WarrantyMonths, 0)
		invoice.WarrantyUntil = &until
	}

	created, err := s.repo.Create(ctx, invoice)
	if err != nil {
		if input.IdempotencyKey != "" && s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return nil, err
	}

	if err := s.reports.MarkBillGenerated(ctx, report.ID); err != nil {
		return nil, err
	}
	if cascade {
		if _, err := s.issues.TransitionByID(ctx, issue.ID, issues.StatusAwaitingPay, input.CreatedByID, "invoice "+created.Number+" generated"); err != nil {
			return nil, err
		}
	}
	if s.enqueuer != nil {
		_ = s.enqueuer.EnqueueInvoicePDF(ctx, created.ID)
		if issue.Contact.Email != "" {
			body := fmt.Sprintf("<p>Invoice %s for issue %s has been issued. Amount due: ₹%.2f.</p>",
				created.Number, issue.Code, created.FinalAmount)
			_ = s.enqueuer.EnqueueMail(ctx, issue.Contact.Email, "Your invoice "+created.Number, body)
		}
	}
	s.recordAudit(ctx, "INVOICE_CREATE", created.ID, map[string]any{
		"number": created.Number, "issue_code": issue.Code, "final_amount": created.FinalAmount,
	})
	return created, nil
}

// Get fetches an invoice by id.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByNumber fetches an invoice by its human-readable number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns invoices newest first.
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]Invoice, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// UpdateStatus settles a pending invoice. A paid invoice closes the report
// and resolves the issue; a cancelled one leaves both untouched so the issue
// can be re-billed after the cancellation is sorted out.
func (s *Service) UpdateStatus(ctx context.Context, id int64, next Status, actorID int64) (*Invoice, error) {
	if next != StatusPaid && next != StatusCancelled {
		return nil, fmt.Errorf("invoices: status must be paid or cancelled, got %q", next)
	}
	invoice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != StatusPending {
		return nil, fmt.Errorf("invoice %s is %s: %w", invoice.Number, invoice.Status, shared.ErrConflict)
	}

	var issue *issues.Issue
	cascade := false
	if next == StatusPaid {
		issue, err = s.issues.GetByID(ctx, invoice.IssueID)
		if err != nil {
			return nil, err
		}
		cascade = issue.Status != issues.StatusResolved
		if cascade && !issues.CanTransition(issue.Status, issues.StatusResolved) {
			return nil, issues.ErrInvalidTransition
		}
	}

	if err := s.repo.SetStatus(ctx, id, StatusPending, next); err != nil {
		return nil, err
	}

	if next == StatusPaid {
		if err := s.reports.Close(ctx, invoice.ReportID); err != nil {
			return nil, err
		}
		if cascade {
			if _, err := s.issues.TransitionByID(ctx, issue.ID, issues.StatusResolved, actorID, "invoice "+invoice.Number+" paid"); err != nil {
				return nil, err
			}
		}
	}

	s.recordAudit(ctx, "INVOICE_STATUS", id, map[string]any{
		"number": invoice.Number, "status": string(next),
	})
	return s.repo.GetByID(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorIDFromContext(ctx),
		Action:   action,
		Entity:   shared.AuditEntityInvoice,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
