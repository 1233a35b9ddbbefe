package users

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/shaid-7908/display-doctor-v2/internal/issues"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// MailEnqueuer schedules outbound mail delivery.
type MailEnqueuer interface {
	EnqueueMail(ctx context.Context, to, subject, body string) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles staff account management.
type Service struct {
	repo  RepositoryPort
	mail  MailEnqueuer
	audit AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, mail MailEnqueuer, audit AuditPort) *Service {
	return &Service{repo: repo, mail: mail, audit: audit}
}

// Onboard creates an account with a generated temporary password and mails it
// to the new staff member.
func (s *Service) Onboard(ctx context.Context, input CreateUserInput) (*User, error) {
	if input.Name == "" || input.Email == "" {
		return nil, errors.New("name and email required")
	}
	if !ValidRole(input.Role) {
		return nil, fmt.Errorf("unknown role %q", input.Role)
	}
	password, err := temporaryPassword(12)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, input, string(hash))
	if err != nil {
		return nil, err
	}
	if s.mail != nil {
		body := fmt.Sprintf("Hi %s,\n\nYour Display Doctor account is ready.\nLogin: %s\nTemporary password: %s\n\nPlease change it after first login.",
			created.Name, created.Email, password)
		_ = s.mail.EnqueueMail(ctx, created.Email, "Your Display Doctor account", body)
	}
	s.recordAudit(ctx, "USER_CREATE", created.ID, map[string]any{"email": created.Email, "role": string(created.Role)})
	return created, nil
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns accounts, optionally filtered by role and status.
func (s *Service) List(ctx context.Context, role Role, status string) ([]User, error) {
	return s.repo.List(ctx, role, status)
}

// SetStatus activates or deactivates an account.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) error {
	if status != StatusActive && status != StatusInactive {
		return fmt.Errorf("status must be active or inactive, got %q", status)
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.recordAudit(ctx, "USER_STATUS", id, map[string]any{"status": status})
	return nil
}

// SetRole changes the account role.
func (s *Service) SetRole(ctx context.Context, id int64, role Role) error {
	if !ValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}
	if err := s.repo.SetRole(ctx, id, role); err != nil {
		return err
	}
	s.recordAudit(ctx, "USER_ROLE", id, map[string]any{"role": string(role)})
	return nil
}

// ResetPassword issues a fresh temporary password and mails it out.
func (s *Service) ResetPassword(ctx context.Context, id int64) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	password, err := temporaryPassword(12)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, id, string(hash)); err != nil {
		return err
	}
	if s.mail != nil {
		_ = s.mail.EnqueueMail(ctx, user.Email, "Display Doctor password reset",
			fmt.Sprintf("Hi %s,\n\nYour temporary password is: %s", user.Name, password))
	}
	s.recordAudit(ctx, "USER_PASSWORD_RESET", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorIDFromContext(ctx),
		Action:   action,
		Entity:   shared.AuditEntityUser,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}

const passwordCharset = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

func temporaryPassword(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordCharset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordCharset[n.Int64()]
	}
	return string(out), nil
}

// Directory adapts the user service to the assignment resolver's lookup.
type Directory struct {
	service *Service
}

// NewDirectory builds the adapter.
func NewDirectory(service *Service) *Directory {
	return &Directory{service: service}
}

// Technician returns the resolver's view of a user account.
func (d *Directory) Technician(ctx context.Context, id int64) (*issues.TechnicianInfo, error) {
	user, err := d.service.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &issues.TechnicianInfo{
		ID:     user.ID,
		Name:   user.Name,
		Phone:  user.Phone,
		Role:   string(user.Role),
		Status: user.Status,
	}, nil
}

var _ issues.TechnicianDirectory = (*Directory)(nil)
