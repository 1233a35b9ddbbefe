package technicians

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaid-7908/display-doctor-v2/internal/platform/db"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// RepositoryPort defines persistence operations for qualification records.
type RepositoryPort interface {
	Qualify(ctx context.Context, input QualifyInput) (*Qualification, error)
	GetByID(ctx context.Context, id int64) (*Qualification, error)
	ListByTechnician(ctx context.Context, technicianID int64) ([]Qualification, error)
	List(ctx context.Context, serviceCategoryID int64) ([]Qualification, error)
	SetActive(ctx context.Context, id int64, active bool) error
	IsQualified(ctx context.Context, technicianID, serviceCategoryID int64) (bool, error)
	Candidates(ctx context.Context, serviceCategoryID int64) ([]Candidate, error)
}

// Repository provides PostgreSQL backed persistence for qualifications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const qualificationColumns = `ts.id, ts.code, ts.technician_id, u.name, ts.service_category_id,
sc.name, ts.sub_category_ids, ts.active, ts.created_at, ts.updated_at`

const qualificationFrom = ` FROM technician_services ts
JOIN users u ON u.id = ts.technician_id
JOIN service_categories sc ON sc.id = ts.service_category_id`

// Qualify inserts a qualification with a freshly generated code.
func (r *Repository) Qualify(ctx context.Context, input QualifyInput) (*Qualification, error) {
	var created *Qualification
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		code, err := nextTechnicianCode(ctx, tx, time.Now())
		if err != nil {
			return fmt.Errorf("technicians: generate code: %w", err)
		}

		q := Qualification{
			Code:              code,
			TechnicianID:      input.TechnicianID,
			ServiceCategoryID: input.ServiceCategoryID,
			SubCategoryIDs:    input.SubCategoryIDs,
			Active:            true,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO technician_services (code, technician_id, service_category_id, sub_category_ids, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			code, input.TechnicianID, input.ServiceCategoryID, input.SubCategoryIDs,
		).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyQualified
			}
			return fmt.Errorf("technicians: insert: %w", err)
		}
		created = &q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// nextTechnicianCode finds the highest existing sequence for the current
// year and increments it. TECHNI<2-digit-year><5-digit-sequence>.
func nextTechnicianCode(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	prefix := "TECHNI" + now.Format("06")
	var latest string
	err := tx.QueryRow(ctx,
		`SELECT code FROM technician_services WHERE code LIKE $1 ORDER BY code DESC LIMIT 1 FOR UPDATE`,
		prefix+"%",
	).Scan(&latest)
	seq := 1
	if err == nil && len(latest) >= 5 {
		if last, convErr := strconv.Atoi(latest[len(latest)-5:]); convErr == nil {
			seq = last + 1
		}
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, seq), nil
}

// GetByID fetches a qualification by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Qualification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+qualificationColumns+qualificationFrom+` WHERE ts.id = $1`, id)
	q, err := scanQualification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

// ListByTechnician returns all qualifications held by a technician.
func (r *Repository) ListByTechnician(ctx context.Context, technicianID int64) ([]Qualification, error) {
	return r.list(ctx, `SELECT `+qualificationColumns+qualificationFrom+` WHERE ts.technician_id = $1 ORDER BY ts.code`, technicianID)
}

// List returns qualifications, optionally narrowed to one category.
func (r *Repository) List(ctx context.Context, serviceCategoryID int64) ([]Qualification, error) {
	if serviceCategoryID == 0 {
		return r.list(ctx, `SELECT `+qualificationColumns+qualificationFrom+` ORDER BY ts.code`)
	}
	return r.list(ctx, `SELECT `+qualificationColumns+qualificationFrom+` WHERE ts.service_category_id = $1 ORDER BY ts.code`, serviceCategoryID)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Qualification, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Qualification
	for rows.Next() {
		q, err := scanQualification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// SetActive toggles a qualification on or off.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE technician_services SET active = $2, updated_at = NOW() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// IsQualified reports whether an active qualification links the technician
// to the category.
func (r *Repository) IsQualified(ctx context.Context, technicianID, serviceCategoryID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM technician_services
			WHERE technician_id = $1 AND service_category_id = $2 AND active = TRUE
		)`, technicianID, serviceCategoryID,
	).Scan(&ok)
	return ok, err
}

// Candidates returns active technicians holding an active qualification for
// the category, for the assignment picker.
func (r *Repository) Candidates(ctx context.Context, serviceCategoryID int64) ([]Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ts.technician_id, u.name, u.phone, ts.code, ts.service_category_id
		FROM technician_services ts
		JOIN users u ON u.id = ts.technician_id
		WHERE ts.service_category_id = $1
		  AND ts.active = TRUE
		  AND u.role = 'technician'
		  AND u.status = 'active'
		ORDER BY u.name`, serviceCategoryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.TechnicianID, &c.Name, &c.Phone, &c.Code, &c.ServiceCategoryID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanQualification(row pgx.Row) (*Qualification, error) {
	var q Qualification
	err := row.Scan(
		&q.ID, &q.Code, &q.TechnicianID, &q.TechnicianName, &q.ServiceCategoryID,
		&q.CategoryName, &q.SubCategoryIDs, &q.Active, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
