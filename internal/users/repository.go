package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaid-7908/display-doctor-v2/internal/platform/db"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// ErrEmailTaken indicates the email is already registered.
var ErrEmailTaken = errors.New("users: email already registered")

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateUserInput, passwordHash string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, role Role, status string) ([]User, error)
	SetStatus(ctx context.Context, id int64, status string) error
	SetRole(ctx context.Context, id int64, role Role) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, name, email, phone, role, status, created_at, updated_at`

// Create inserts a new account in active status.
func (r *Repository) Create(ctx context.Context, input CreateUserInput, passwordHash string) (*User, error) {
	user := User{
		Name:   input.Name,
		Email:  input.Email,
		Phone:  input.Phone,
		Role:   input.Role,
		Status: StatusActive,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, phone, password_hash, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'active', NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		input.Name, input.Email, input.Phone, passwordHash, string(input.Role),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("users: insert: %w", err)
	}
	return &user, nil
}

// GetByID fetches an account by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail fetches an account by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *Repository) get(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	var phone *string
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &phone, &user.Role, &user.Status,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if phone != nil {
		user.Phone = *phone
	}
	return &user, nil
}

// List returns accounts, optionally filtered by role and status.
func (r *Repository) List(ctx context.Context, role Role, status string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	args := []any{}
	if role != "" {
		args = append(args, string(role))
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY id"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		var phone *string
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &phone, &user.Role, &user.Status,
			&user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		if phone != nil {
			user.Phone = *phone
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetStatus activates or deactivates an account.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string) error {
	return r.exec(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
}

// SetRole changes the account role.
func (r *Repository) SetRole(ctx context.Context, id int64, role Role) error {
	return r.exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
}

// SetPassword replaces the stored hash.
func (r *Repository) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
