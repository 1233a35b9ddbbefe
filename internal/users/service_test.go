package users

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

type memoryUserRepo struct {
	users   map[int64]*User
	hashes  map[int64]string
	byEmail map[string]int64
	nextID  int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]*User), hashes: make(map[int64]string), byEmail: make(map[string]int64)}
}

func (r *memoryUserRepo) Create(ctx context.Context, input CreateUserInput, passwordHash string) (*User, error) {
	if _, exists := r.byEmail[input.Email]; exists {
		return nil, ErrEmailTaken
	}
	r.nextID++
	user := &User{ID: r.nextID, Name: input.Name, Email: input.Email, Phone: input.Phone, Role: input.Role, Status: StatusActive}
	r.users[user.ID] = user
	r.hashes[user.ID] = passwordHash
	r.byEmail[user.Email] = user.ID
	dup := *user
	return &dup, nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	dup := *user
	return &dup, nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	id, ok := r.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryUserRepo) List(ctx context.Context, role Role, status string) ([]User, error) {
	var out []User
	for _, user := range r.users {
		if role != "" && user.Role != role {
			continue
		}
		if status != "" && user.Status != status {
			continue
		}
		out = append(out, *user)
	}
	return out, nil
}

func (r *memoryUserRepo) SetStatus(ctx context.Context, id int64, status string) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.Status = status
	return nil
}

func (r *memoryUserRepo) SetRole(ctx context.Context, id int64, role Role) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.Role = role
	return nil
}

func (r *memoryUserRepo) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	r.hashes[id] = passwordHash
	return nil
}

type mailRecorder struct {
	sent []string
	body string
}

func (m *mailRecorder) EnqueueMail(ctx context.Context, to, subject, body string) error {
	m.sent = append(m.sent, to)
	m.body = body
	return nil
}

func TestOnboardSendsTemporaryPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	mail := &mailRecorder{}
	svc := NewService(repo, mail, nil)

	created, err := svc.Onboard(context.Background(), CreateUserInput{
		Name: "Asha", Email: "asha@example.com", Role: RoleTechnician,
	})
	require.NoError(t, err)
	require.Equal(t, StatusActive, created.Status)
	require.Equal(t, []string{"asha@example.com"}, mail.sent)
	require.NotEmpty(t, repo.hashes[created.ID])

	// the mailed password matches the stored hash
	var password string
	for _, line := range strings.Split(mail.body, "\n") {
		if rest, ok := strings.CutPrefix(line, "Temporary password: "); ok {
			password = rest
			break
		}
	}
	require.NotEmpty(t, password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[created.ID]), []byte(password)))
}

func TestOnboardRejectsDuplicateEmail(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Onboard(ctx, CreateUserInput{Name: "Asha", Email: "asha@example.com", Role: RoleCaller})
	require.NoError(t, err)
	_, err = svc.Onboard(ctx, CreateUserInput{Name: "Other", Email: "asha@example.com", Role: RoleCaller})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestOnboardRejectsUnknownRole(t *testing.T) {
	svc := NewService(newMemoryUserRepo(), nil, nil)
	_, err := svc.Onboard(context.Background(), CreateUserInput{Name: "X", Email: "x@example.com", Role: "customer"})
	require.Error(t, err)
}

func TestSetStatusValidatesValue(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Onboard(ctx, CreateUserInput{Name: "Asha", Email: "a@example.com", Role: RoleTechnician})
	require.NoError(t, err)

	require.Error(t, svc.SetStatus(ctx, created.ID, "suspended"))
	require.NoError(t, svc.SetStatus(ctx, created.ID, StatusInactive))
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, got.Status)
}

func TestDirectoryAdapter(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Onboard(ctx, CreateUserInput{Name: "Asha", Email: "a@example.com", Phone: "123", Role: RoleTechnician})
	require.NoError(t, err)

	dir := NewDirectory(svc)
	tech, err := dir.Technician(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "technician", tech.Role)
	require.Equal(t, "active", tech.Status)
	require.Equal(t, "Asha", tech.Name)

	_, err = dir.Technician(ctx, 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
