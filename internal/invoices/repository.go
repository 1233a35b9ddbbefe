package invoices

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaid-7908/display-doctor-v2/internal/platform/db"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// RepositoryPort defines persistence operations for invoices.
type RepositoryPort interface {
	Create(ctx context.Context, invoice *Invoice) (*Invoice, error)
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	GetByIssueID(ctx context.Context, issueID int64) (*Invoice, error)
	List(ctx context.Context, status Status, limit, offset int) ([]Invoice, int, error)
	SetStatus(ctx context.Context, id int64, from, to Status) error
}

// Repository provides PostgreSQL backed persistence for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, number, issue_id, issue_code, report_id,
customer_name, customer_phone, customer_address, device_type, device_brand, device_model,
labour_charge, parts_cost, visit_charge, discount, final_quotation,
subtotal, tax_amount, final_amount, warranty_months, warranty_until,
status, created_by_id, created_at, updated_at`

var invoiceSeqPattern = regexp.MustCompile(`^INV-\d{6}-(\d+)$`)

// Create persists the invoice with a freshly generated monthly number. The
// unique index on issue_id turns a racing double-generation into
// ErrInvoiceAlreadyExists.
func (r *Repository) Create(ctx context.Context, invoice *Invoice) (*Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		number, err := nextInvoiceNumber(ctx, tx, time.Now())
		if err != nil {
			return fmt.Errorf("invoices: generate number: %w", err)
		}
		invoice.Number = number
		invoice.Status = StatusPending
		return tx.QueryRow(ctx, `
			INSERT INTO invoices (
				number, issue_id, issue_code, report_id,
				customer_name, customer_phone, customer_address, device_type, device_brand, device_model,
				labour_charge, parts_cost, visit_charge, discount, final_quotation,
				subtotal, tax_amount, final_amount, warranty_months, warranty_until,
				status, created_by_id, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
				'pending', $21, NOW(), NOW()
			)
			RETURNING id, created_at, updated_at`,
			invoice.Number, invoice.IssueID, invoice.IssueCode, invoice.ReportID,
			invoice.CustomerName, invoice.CustomerPhone, invoice.CustomerAddr,
			invoice.DeviceType, invoice.DeviceBrand, invoice.DeviceModel,
			invoice.LabourCharge, invoice.PartsCost, invoice.VisitCharge, invoice.Discount, invoice.FinalQuotation,
			invoice.Subtotal, invoice.TaxAmount, invoice.FinalAmount, invoice.WarrantyMonths, invoice.WarrantyUntil,
			invoice.CreatedByID,
		).Scan(&invoice.ID, &invoice.CreatedAt, &invoice.UpdatedAt)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrInvoiceAlreadyExists
		}
		return nil, err
	}
	return invoice, nil
}

// nextInvoiceNumber locks the highest number for the current year-month and
// bumps it. Ordering by length before value keeps the max-scan correct even
// after a month outgrows the three-digit padding.
func nextInvoiceNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	period := invoicePeriod(now)
	var latest string
	err := tx.QueryRow(ctx,
		`SELECT number FROM invoices WHERE number LIKE $1 ORDER BY length(number) DESC, number DESC LIMIT 1 FOR UPDATE`,
		"INV-"+period+"-%",
	).Scan(&latest)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	return bumpInvoiceNumber(period, latest), nil
}

// invoicePeriod is the YYYYMM segment; the sequence resets at 1 each month.
func invoicePeriod(now time.Time) string {
	return now.Format("200601")
}

// bumpInvoiceNumber returns the successor of latest within the month's
// sequence, or the sequence start when latest is empty. Sequences past 999
// widen beyond the padding instead of wrapping.
func bumpInvoiceNumber(period, latest string) string {
	seq := 1
	if m := invoiceSeqPattern.FindStringSubmatch(latest); m != nil {
		if last, err := strconv.Atoi(m[1]); err == nil {
			seq = last + 1
		}
	}
	return fmt.Sprintf("INV-%s-%03d", period, seq)
}

// GetByID fetches an invoice by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	return r.get(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

// GetByNumber fetches an invoice by its human-readable number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return r.get(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE number = $1`, number)
}

// GetByIssueID fetches the invoice billed against an issue.
func (r *Repository) GetByIssueID(ctx context.Context, issueID int64) (*Invoice, error) {
	return r.get(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE issue_id = $1`, issueID)
}

func (r *Repository) get(ctx context.Context, query string, arg any) (*Invoice, error) {
	invoice, err := scanInvoice(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return invoice, nil
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var invoice Invoice
	err := row.Scan(
		&invoice.ID, &invoice.Number, &invoice.IssueID, &invoice.IssueCode, &invoice.ReportID,
		&invoice.CustomerName, &invoice.CustomerPhone, &invoice.CustomerAddr,
		&invoice.DeviceType, &invoice.DeviceBrand, &invoice.DeviceModel,
		&invoice.LabourCharge, &invoice.PartsCost, &invoice.VisitCharge, &invoice.Discount, &invoice.FinalQuotation,
		&invoice.Subtotal, &invoice.TaxAmount, &invoice.FinalAmount, &invoice.WarrantyMonths, &invoice.WarrantyUntil,
		&invoice.Status, &invoice.CreatedByID, &invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// List returns invoices newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status Status, limit, offset int) ([]Invoice, int, error) {
	where := ""
	countArgs := []any{}
	if status != "" {
		where = " WHERE status = $1"
		countArgs = append(countArgs, string(status))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	args := append(countArgs, limit, offset)
	query := fmt.Sprintf(`SELECT `+invoiceColumns+` FROM invoices`+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *invoice)
	}
	return out, total, rows.Err()
}

// SetStatus moves the payment state with a conditional update keyed on the
// expected current status.
func (r *Repository) SetStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("invoices: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrConflict
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
