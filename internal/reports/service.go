package reports

import (
	"context"
	"errors"
	"strconv"

	"github.com/shaid-7908/display-doctor-v2/internal/issues"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// IssuePort is the slice of the issue service the report workflow needs.
type IssuePort interface {
	GetByID(ctx context.Context, id int64) (*issues.Issue, error)
	TransitionByID(ctx context.Context, id int64, next issues.Status, actorID int64, note string) (*issues.Issue, error)
}

// ApprovalPort reused from shared.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles the quotation/report workflow.
type Service struct {
	repo      RepositoryPort
	issues    IssuePort
	approvals ApprovalPort
	audit     AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, issuePort IssuePort, approvals ApprovalPort, audit AuditPort) *Service {
	return &Service{repo: repo, issues: issuePort, approvals: approvals, audit: audit}
}

// Create files the single diagnostic report for an issue. A second report for
// the same issue fails with ErrDuplicateReport and leaves the original alone.
func (s *Service) Create(ctx context.Context, input CreateReportInput) (*Report, error) {
	if input.Diagnosis == "" {
		return nil, errors.New("diagnosis required")
	}
	issue, err := s.issues.GetByID(ctx, input.IssueID)
	if err != nil {
		return nil, err
	}
	if issues.IsTerminal(issue.Status) {
		return nil, errors.New("issue is " + string(issue.Status))
	}
	if issue.Assignment != nil && input.TechnicianID == 0 {
		input.TechnicianID = issue.Assignment.TechnicianID
	}
	created, err := s.repo.Create(ctx, input, issue.Code)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "REPORT_CREATE", created.ID, map[string]any{"issue_code": issue.Code})
	return created, nil
}

// Get fetches a report by id.
func (s *Service) Get(ctx context.Context, id int64) (*Report, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByIssueID fetches the report linked to an issue.
func (s *Service) GetByIssueID(ctx context.Context, issueID int64) (*Report, error) {
	return s.repo.GetByIssueID(ctx, issueID)
}

// List returns reports newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Report, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Approve records the admin's quotation decision and cascades the linked
// issue to in_progress. The cascade is dry-run checked before any write so a
// rejected transition leaves the report untouched.
func (s *Service) Approve(ctx context.Context, input ApproveInput) (*Report, error) {
	report, err := s.repo.GetByID(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}
	issue, err := s.issues.GetByID(ctx, report.IssueID)
	if err != nil {
		return nil, err
	}
	cascade := issue.Status != issues.StatusInProgress
	if cascade && !issues.CanTransition(issue.Status, issues.StatusInProgress) {
		return nil, issues.ErrInvalidTransition
	}

	qtype := QuotationTypeFor(input.InitialQuotation, input.FinalQuotation)
	if err := s.repo.Approve(ctx, report.ID, input.InitialQuotation, input.FinalQuotation, qtype); err != nil {
		return nil, err
	}
	if cascade {
		if _, err := s.issues.TransitionByID(ctx, issue.ID, issues.StatusInProgress, input.ActorID, "quotation approved"); err != nil {
			return nil, err
		}
	}
	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  shared.ApprovalModuleReport,
			RefID:   report.ID,
			ActorID: input.ActorID,
			Action:  shared.ApprovalApprove,
			Note:    input.Note,
		})
	}
	s.recordAudit(ctx, "REPORT_APPROVE", report.ID, map[string]any{
		"issue_code": report.IssueCode, "final_quotation": input.FinalQuotation,
	})
	return s.repo.GetByID(ctx, report.ID)
}

// MarkBillGenerated is called by the invoice workflow once an invoice has
// been created against the report.
func (s *Service) MarkBillGenerated(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusBillGenerated)
}

// Close is called by the invoice workflow when a paid invoice settles the
// report.
func (s *Service) Close(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusClosed)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorIDFromContext(ctx),
		Action:   action,
		Entity:   shared.AuditEntityReport,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
