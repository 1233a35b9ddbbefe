package issues

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaid-7908/display-doctor-v2/internal/platform/db"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// RepositoryPort defines persistence operations for issues.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateIssueInput) (*Issue, error)
	GetByID(ctx context.Context, id int64) (*Issue, error)
	GetByCode(ctx context.Context, code string) (*Issue, error)
	List(ctx context.Context, req ListIssuesRequest) ([]IssueWithDetails, int, error)
	ApplyTransition(ctx context.Context, issueID int64, from, to Status, entry HistoryEntry) error
	SetAssignment(ctx context.Context, issueID int64, a Assignment, priority Priority, from Status, entry HistoryEntry) error
	SetSchedule(ctx context.Context, issueID int64, in ScheduleInput, entry HistoryEntry) error
	AppendHistory(ctx context.Context, issueID int64, entry HistoryEntry) error
	ListHistory(ctx context.Context, issueID int64) ([]HistoryEntry, error)
	SoftDelete(ctx context.Context, issueID int64) error
}

// Repository provides PostgreSQL backed persistence for issues.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const issueColumns = `id, code, customer_id, contact_name, contact_phone, contact_email,
contact_address, contact_landmark, contact_city, contact_state, contact_pin_code,
service_category_id, device_type, device_brand, device_model, device_serial,
device_warranty_status, problem_description, photos, source, priority, status,
technician_id, assigned_by, assigned_at, assignment_notes,
preferred_date, schedule_window, scheduled_start, scheduled_end, arrival_at, completed_at,
created_by_id, created_by_role, is_deleted, created_at, updated_at`

// Create inserts a new issue with a freshly generated code and the initial
// history entry in one transaction.
func (r *Repository) Create(ctx context.Context, input CreateIssueInput) (*Issue, error) {
	var created *Issue
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		code, err := nextIssueCode(ctx, tx, time.Now())
		if err != nil {
			return fmt.Errorf("issues: generate code: %w", err)
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO issues (
				code, customer_id, contact_name, contact_phone, contact_email,
				contact_address, contact_landmark, contact_city, contact_state, contact_pin_code,
				service_category_id, device_type, device_brand, device_model, device_serial,
				device_warranty_status, problem_description, photos, source, priority, status,
				preferred_date, schedule_window, created_by_id, created_by_role, created_at, updated_at
			) VALUES (
				$1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8, $9, $10,
				NULLIF($11, 0), $12, $13, $14, $15, $16, $17, $18, $19, $20, 'new',
				$21, $22, $23, $24, NOW(), NOW()
			)
			RETURNING id, created_at, updated_at`,
			code, input.CustomerID, input.Contact.Name, input.Contact.Phone, input.Contact.Email,
			input.Contact.Address, input.Contact.Landmark, input.Contact.City, input.Contact.State, input.Contact.PinCode,
			input.ServiceCategoryID, input.Device.Type, input.Device.Brand, input.Device.Model, input.Device.SerialNumber,
			input.Device.WarrantyStatus, input.ProblemDescription, input.Photos, string(input.Source), string(input.Priority),
			input.PreferredDate, input.Window, input.CreatedByID, input.CreatedByRole,
		)

		issue := Issue{
			Code:               code,
			CustomerID:         input.CustomerID,
			Contact:            input.Contact,
			ServiceCategoryID:  input.ServiceCategoryID,
			Device:             input.Device,
			ProblemDescription: input.ProblemDescription,
			Photos:             input.Photos,
			Source:             input.Source,
			Priority:           input.Priority,
			Status:             StatusNew,
			Schedule:           Schedule{PreferredDate: input.PreferredDate, Window: input.Window},
			CreatedByID:        input.CreatedByID,
			CreatedByRole:      input.CreatedByRole,
		}
		if err := row.Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt); err != nil {
			return fmt.Errorf("issues: insert: %w", err)
		}

		if err := appendHistoryTx(ctx, tx, issue.ID, HistoryEntry{
			At:     issue.CreatedAt,
			By:     input.CreatedByID,
			Action: ActionCreated,
			Note:   input.Note,
		}); err != nil {
			return err
		}

		created = &issue
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// nextIssueCode locks the year's highest existing code and bumps it.
// Ordering by length before value keeps the max-scan correct even after the
// sequence outgrows its five-digit padding.
func nextIssueCode(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	prefix := issueCodePrefix(now)
	var latest string
	err := tx.QueryRow(ctx,
		`SELECT code FROM issues WHERE code LIKE $1 ORDER BY length(code) DESC, code DESC LIMIT 1 FOR UPDATE`,
		prefix+"%",
	).Scan(&latest)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	return bumpIssueCode(prefix, latest), nil
}

// issueCodePrefix is "ISS" plus the two-digit year; the sequence restarts at
// 1 each year.
func issueCodePrefix(now time.Time) string {
	return "ISS" + now.Format("06")
}

// bumpIssueCode returns the successor of latest within the prefix sequence,
// or the sequence start when latest is empty. Sequences past 99999 widen
// beyond the padding instead of wrapping.
func bumpIssueCode(prefix, latest string) string {
	seq := 1
	if rest := strings.TrimPrefix(latest, prefix); rest != "" && rest != latest {
		if last, err := strconv.Atoi(rest); err == nil {
			seq = last + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, seq)
}

// GetByID fetches an issue by internal id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Issue, error) {
	return r.get(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = $1 AND is_deleted = FALSE`, id)
}

// GetByCode fetches an issue by its human-readable code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Issue, error) {
	return r.get(ctx, `SELECT `+issueColumns+` FROM issues WHERE code = $1 AND is_deleted = FALSE`, code)
}

func (r *Repository) get(ctx context.Context, query string, arg any) (*Issue, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return issue, nil
}

func scanIssue(row pgx.Row) (*Issue, error) {
	var (
		issue                      Issue
		customerID, categoryID     *int64
		technicianID, assignedBy   *int64
		assignedAt                 *time.Time
		assignmentNotes            *string
		email, landmark            *string
		brand, model, serial, warr *string
	)
	err := row.Scan(
		&issue.ID, &issue.Code, &customerID, &issue.Contact.Name, &issue.Contact.Phone, &email,
		&issue.Contact.Address, &landmark, &issue.Contact.City, &issue.Contact.State, &issue.Contact.PinCode,
		&categoryID, &issue.Device.Type, &brand, &model, &serial,
		&warr, &issue.ProblemDescription, &issue.Photos, &issue.Source, &issue.Priority, &issue.Status,
		&technicianID, &assignedBy, &assignedAt, &assignmentNotes,
		&issue.Schedule.PreferredDate, &issue.Schedule.Window, &issue.Schedule.ScheduledStart, &issue.Schedule.ScheduledEnd,
		&issue.Schedule.ArrivalAt, &issue.Schedule.CompletedAt,
		&issue.CreatedByID, &issue.CreatedByRole, &issue.IsDeleted, &issue.CreatedAt, &issue.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if customerID != nil {
		issue.CustomerID = *customerID
	}
	if categoryID != nil {
		issue.ServiceCategoryID = *categoryID
	}
	if email != nil {
		issue.Contact.Email = *email
	}
	if landmark != nil {
		issue.Contact.Landmark = *landmark
	}
	if brand != nil {
		issue.Device.Brand = *brand
	}
	if model != nil {
		issue.Device.Model = *model
	}
	if serial != nil {
		issue.Device.SerialNumber = *serial
	}
	if warr != nil {
		issue.Device.WarrantyStatus = *warr
	}
	if technicianID != nil {
		issue.Assignment = &Assignment{TechnicianID: *technicianID}
		if assignedBy != nil {
			issue.Assignment.AssignedBy = *assignedBy
		}
		if assignedAt != nil {
			issue.Assignment.AssignedAt = *assignedAt
		}
		if assignmentNotes != nil {
			issue.Assignment.Notes = *assignmentNotes
		}
	}
	return &issue, nil
}

// List returns issues with technician and category details joined in.
func (r *Repository) List(ctx context.Context, req ListIssuesRequest) ([]IssueWithDetails, int, error) {
	query := `
		SELECT i.id, i.code, i.status, i.priority, i.source, i.contact_name, i.contact_phone,
		       i.contact_city, i.device_type, i.problem_description, i.preferred_date,
		       i.created_at, i.updated_at,
		       COALESCE(u.name, ''), COALESCE(u.phone, ''), COALESCE(c.name, ''),
		       EXISTS (SELECT 1 FROM issue_reports ir WHERE ir.issue_id = i.id)
		FROM issues i
		LEFT JOIN users u ON u.id = i.technician_id
		LEFT JOIN service_categories c ON c.id = i.service_category_id
		WHERE i.is_deleted = FALSE`
	countQuery := `SELECT COUNT(*) FROM issues i WHERE i.is_deleted = FALSE`

	args := []any{}
	countArgs := []any{}
	addFilter := func(cond string, val any) {
		args = append(args, val)
		countArgs = append(countArgs, val)
		placeholder := "$" + strconv.Itoa(len(args))
		query += " AND " + fmt.Sprintf(cond, placeholder)
		countQuery += " AND " + fmt.Sprintf(cond, "$"+strconv.Itoa(len(countArgs)))
	}
	if req.Status != "" {
		addFilter("i.status = %s", string(req.Status))
	}
	if req.Priority != "" {
		addFilter("i.priority = %s", string(req.Priority))
	}
	if req.TechnicianID != 0 {
		addFilter("i.technician_id = %s", req.TechnicianID)
	}
	if req.DateFrom != nil {
		addFilter("i.created_at >= %s", *req.DateFrom)
	}
	if req.DateTo != nil {
		addFilter("i.created_at <= %s", *req.DateTo)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, req.Offset)
	query += fmt.Sprintf(" ORDER BY i.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []IssueWithDetails
	for rows.Next() {
		var d IssueWithDetails
		if err := rows.Scan(
			&d.ID, &d.Code, &d.Status, &d.Priority, &d.Source, &d.Contact.Name, &d.Contact.Phone,
			&d.Contact.City, &d.Device.Type, &d.ProblemDescription, &d.Schedule.PreferredDate,
			&d.CreatedAt, &d.UpdatedAt,
			&d.TechnicianName, &d.TechnicianPhone, &d.CategoryName,
			&d.HasReport,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// ApplyTransition moves the issue status with a conditional update keyed on
// the expected current status. A stale expectation yields shared.ErrConflict
// and no mutation.
func (r *Repository) ApplyTransition(ctx context.Context, issueID int64, from, to Status, entry HistoryEntry) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE issues SET
				status = $3,
				arrival_at = CASE WHEN $3 = 'in_progress' AND arrival_at IS NULL THEN NOW() ELSE arrival_at END,
				completed_at = CASE WHEN $3 = 'resolved' AND completed_at IS NULL THEN NOW() ELSE completed_at END,
				updated_at = NOW()
			WHERE id = $1 AND status = $2 AND is_deleted = FALSE`,
			issueID, string(from), string(to),
		)
		if err != nil {
			return fmt.Errorf("issues: apply transition: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrConflict
		}
		return appendHistoryTx(ctx, tx, issueID, entry)
	})
}

// SetAssignment overwrites the assignment sub-object, moves the status to
// assigned and optionally bumps priority, all keyed on the expected current
// status. A stale expectation yields shared.ErrConflict.
func (r *Repository) SetAssignment(ctx context.Context, issueID int64, a Assignment, priority Priority, from Status, entry HistoryEntry) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `UPDATE issues SET technician_id = $2, assigned_by = $3, assigned_at = $4,
			assignment_notes = $5, status = 'assigned', updated_at = NOW()`
		args := []any{issueID, a.TechnicianID, a.AssignedBy, a.AssignedAt, a.Notes}
		if priority != "" {
			args = append(args, string(priority))
			query += fmt.Sprintf(", priority = $%d", len(args))
		}
		args = append(args, string(from))
		query += fmt.Sprintf(" WHERE id = $1 AND status = $%d AND is_deleted = FALSE", len(args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("issues: set assignment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrConflict
		}
		return appendHistoryTx(ctx, tx, issueID, entry)
	})
}

// SetSchedule updates the schedule sub-object.
func (r *Repository) SetSchedule(ctx context.Context, issueID int64, in ScheduleInput, entry HistoryEntry) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE issues SET
				preferred_date = COALESCE($2, preferred_date),
				schedule_window = COALESCE(NULLIF($3, ''), schedule_window),
				scheduled_start = COALESCE($4, scheduled_start),
				scheduled_end = COALESCE($5, scheduled_end),
				updated_at = NOW()
			WHERE id = $1 AND is_deleted = FALSE`,
			issueID, in.PreferredDate, in.Window, in.ScheduledStart, in.ScheduledEnd,
		)
		if err != nil {
			return fmt.Errorf("issues: set schedule: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return appendHistoryTx(ctx, tx, issueID, entry)
	})
}

// AppendHistory adds a standalone trail entry outside a status change.
func (r *Repository) AppendHistory(ctx context.Context, issueID int64, entry HistoryEntry) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return appendHistoryTx(ctx, tx, issueID, entry)
	})
}

// ListHistory returns the append-only audit trail, oldest first.
func (r *Repository) ListHistory(ctx context.Context, issueID int64) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, at, COALESCE(by_user, 0), action, COALESCE(from_status, ''), COALESCE(to_status, ''), COALESCE(note, '')
		FROM issue_history WHERE issue_id = $1 ORDER BY at ASC, id ASC`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.At, &e.By, &e.Action, &e.From, &e.To, &e.Note); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SoftDelete flags the issue as deleted. Issues are never hard-deleted.
func (r *Repository) SoftDelete(ctx context.Context, issueID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE issues SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, issueID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func appendHistoryTx(ctx context.Context, tx pgx.Tx, issueID int64, entry HistoryEntry) error {
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO issue_history (issue_id, at, by_user, action, from_status, to_status, note)
		VALUES ($1, $2, NULLIF($3, 0), $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))`,
		issueID, at, entry.By, string(entry.Action), entry.From, entry.To, entry.Note,
	)
	if err != nil {
		return fmt.Errorf("issues: append history: %w", err)
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
