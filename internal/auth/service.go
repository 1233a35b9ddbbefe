package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// dummyHash keeps the bcrypt cost constant for unknown emails so response
// timing does not reveal whether an account exists.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. All failure modes
// collapse into ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.Active() {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession mirrors the Redis session into the sessions table so an
// operator can audit who was signed in from where.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession drops the mirrored session row on logout.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
