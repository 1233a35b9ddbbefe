package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaid-7908/display-doctor-v2/internal/platform/db"
)

// RepositoryPort defines persistence operations for issue reports.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateReportInput, issueCode string) (*Report, error)
	GetByID(ctx context.Context, id int64) (*Report, error)
	GetByIssueID(ctx context.Context, issueID int64) (*Report, error)
	Approve(ctx context.Context, id int64, initial, final float64, qtype QuotationType) error
	SetStatus(ctx context.Context, id int64, status Status) error
	List(ctx context.Context, limit, offset int) ([]Report, int, error)
}

// Repository provides PostgreSQL backed persistence for reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const reportColumns = `id, issue_id, issue_code, technician_id, diagnosis, work_proposed,
required_parts, budget_estimate, initial_quotation, final_quotation, quotation_type,
is_approved, status, created_at, updated_at`

// Create inserts a report for the issue. The unique index on issue_id makes a
// second report an ErrDuplicateReport.
func (r *Repository) Create(ctx context.Context, input CreateReportInput, issueCode string) (*Report, error) {
	report := Report{
		IssueID:          input.IssueID,
		IssueCode:        issueCode,
		TechnicianID:     input.TechnicianID,
		Diagnosis:        input.Diagnosis,
		WorkProposed:     input.WorkProposed,
		RequiredParts:    input.RequiredParts,
		BudgetEstimate:   input.BudgetEstimate,
		InitialQuotation: input.InitialQuotation,
		FinalQuotation:   input.FinalQuotation,
		QuotationType:    QuotationTypeFor(input.InitialQuotation, input.FinalQuotation),
		Status:           StatusOpen,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO issue_reports (
			issue_id, issue_code, technician_id, diagnosis, work_proposed, required_parts,
			budget_estimate, initial_quotation, final_quotation, quotation_type, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'open', NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		input.IssueID, issueCode, input.TechnicianID, input.Diagnosis, input.WorkProposed,
		input.RequiredParts, input.BudgetEstimate, input.InitialQuotation, input.FinalQuotation,
		string(report.QuotationType),
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateReport
		}
		return nil, fmt.Errorf("reports: insert: %w", err)
	}
	return &report, nil
}

// GetByID fetches a report by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Report, error) {
	return r.get(ctx, `SELECT `+reportColumns+` FROM issue_reports WHERE id = $1`, id)
}

// GetByIssueID fetches the report linked to an issue.
func (r *Repository) GetByIssueID(ctx context.Context, issueID int64) (*Report, error) {
	return r.get(ctx, `SELECT `+reportColumns+` FROM issue_reports WHERE issue_id = $1`, issueID)
}

func (r *Repository) get(ctx context.Context, query string, arg any) (*Report, error) {
	report, err := scanReport(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

func scanReport(row pgx.Row) (*Report, error) {
	var report Report
	err := row.Scan(
		&report.ID, &report.IssueID, &report.IssueCode, &report.TechnicianID,
		&report.Diagnosis, &report.WorkProposed, &report.RequiredParts, &report.BudgetEstimate,
		&report.InitialQuotation, &report.FinalQuotation, &report.QuotationType,
		&report.IsApproved, &report.Status, &report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Approve sets the quotation fields and the approved flag in one statement.
func (r *Repository) Approve(ctx context.Context, id int64, initial, final float64, qtype QuotationType) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE issue_reports SET
			initial_quotation = $2, final_quotation = $3, quotation_type = $4,
			is_approved = TRUE, updated_at = NOW()
		WHERE id = $1`,
		id, initial, final, string(qtype),
	)
	if err != nil {
		return fmt.Errorf("reports: approve: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

// SetStatus moves the report workflow state.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE issue_reports SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("reports: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

// List returns reports newest first plus the unpaged total.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Report, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issue_reports`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM issue_reports ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *report)
	}
	return out, total, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
