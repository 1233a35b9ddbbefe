package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaid-7908/display-doctor-v2/internal/platform/db"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// ErrNameTaken indicates a catalog entry with the same name already exists.
var ErrNameTaken = errors.New("catalog: name already in use")

// RepositoryPort defines persistence operations for the service catalog.
type RepositoryPort interface {
	CreateCategory(ctx context.Context, input CategoryInput) (*Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	ListCategories(ctx context.Context, filters ListFilters) ([]Category, int, error)
	UpdateCategory(ctx context.Context, id int64, input CategoryInput) error
	SetCategoryActive(ctx context.Context, id int64, active bool) error

	CreateSubCategory(ctx context.Context, input SubCategoryInput) (*SubCategory, error)
	ListSubCategories(ctx context.Context, categoryID int64) ([]SubCategory, error)
	SetSubCategoryActive(ctx context.Context, id int64, active bool) error

	CreateSkill(ctx context.Context, input SkillInput, slug string) (*Skill, error)
	ListSkills(ctx context.Context, filters ListFilters) ([]Skill, int, error)
	SetSkillActive(ctx context.Context, id int64, active bool) error
}

// Repository provides PostgreSQL backed persistence for the catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateCategory inserts a service category.
func (r *Repository) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	c := Category{Name: input.Name, Description: input.Description, IsActive: true}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO service_categories (name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		input.Name, input.Description,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return &c, nil
}

// GetCategory fetches a category by id.
func (r *Repository) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM service_categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCategories returns categories matched by the filters plus a total count.
func (r *Repository) ListCategories(ctx context.Context, filters ListFilters) ([]Category, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}
	if filters.ActiveOnly {
		where += ` AND is_active = TRUE`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM service_categories`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, name, description, is_active, created_at, updated_at
		FROM service_categories` + where + ` ORDER BY name`
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, filters.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// UpdateCategory rewrites name and description.
func (r *Repository) UpdateCategory(ctx context.Context, id int64, input CategoryInput) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_categories SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1`,
		id, input.Name, input.Description,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrNameTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetCategoryActive toggles a category.
func (r *Repository) SetCategoryActive(ctx context.Context, id int64, active bool) error {
	return r.toggle(ctx, `UPDATE service_categories SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
}

// CreateSubCategory inserts a sub-category under its parent.
func (r *Repository) CreateSubCategory(ctx context.Context, input SubCategoryInput) (*SubCategory, error) {
	sc := SubCategory{
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		Description: input.Description,
		SkillIDs:    input.SkillIDs,
		IsActive:    true,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO service_subcategories (category_id, name, description, skill_ids, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		input.CategoryID, input.Name, input.Description, input.SkillIDs,
	).Scan(&sc.ID, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return &sc, nil
}

// ListSubCategories returns sub-categories, optionally for one parent.
func (r *Repository) ListSubCategories(ctx context.Context, categoryID int64) ([]SubCategory, error) {
	query := `SELECT id, category_id, name, description, is_active, skill_ids, created_at, updated_at
		FROM service_subcategories`
	args := []any{}
	if categoryID != 0 {
		query += ` WHERE category_id = $1`
		args = append(args, categoryID)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubCategory
	for rows.Next() {
		var sc SubCategory
		if err := rows.Scan(&sc.ID, &sc.CategoryID, &sc.Name, &sc.Description, &sc.IsActive, &sc.SkillIDs, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// SetSubCategoryActive toggles a sub-category.
func (r *Repository) SetSubCategoryActive(ctx context.Context, id int64, active bool) error {
	return r.toggle(ctx, `UPDATE service_subcategories SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
}

// CreateSkill inserts a skill with its precomputed slug.
func (r *Repository) CreateSkill(ctx context.Context, input SkillInput, slug string) (*Skill, error) {
	s := Skill{
		Name:                   input.Name,
		Slug:                   slug,
		Description:            input.Description,
		RecommendedCategoryIDs: input.RecommendedCategoryIDs,
		IsActive:               true,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO skills (name, slug, description, recommended_category_ids, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		input.Name, slug, input.Description, input.RecommendedCategoryIDs,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return &s, nil
}

// ListSkills returns skills matched by the filters plus a total count.
func (r *Repository) ListSkills(ctx context.Context, filters ListFilters) ([]Skill, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (name ILIKE $1 OR slug ILIKE $1)`
	}
	if filters.ActiveOnly {
		where += ` AND is_active = TRUE`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM skills`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, name, slug, description, is_active, recommended_category_ids, created_at, updated_at
		FROM skills` + where + ` ORDER BY name`
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, filters.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Skill
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Description, &s.IsActive, &s.RecommendedCategoryIDs, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// SetSkillActive toggles a skill.
func (r *Repository) SetSkillActive(ctx context.Context, id int64, active bool) error {
	return r.toggle(ctx, `UPDATE skills SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
}

func (r *Repository) toggle(ctx context.Context, query string, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
