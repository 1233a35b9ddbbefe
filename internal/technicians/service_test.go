package technicians

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaid-7908/display-doctor-v2/internal/issues"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

type memoryQualRepo struct {
	quals  map[int64]*Qualification
	nextID int64
	seq    int
}

func newMemoryQualRepo() *memoryQualRepo {
	return &memoryQualRepo{quals: make(map[int64]*Qualification)}
}

func (r *memoryQualRepo) Qualify(ctx context.Context, input QualifyInput) (*Qualification, error) {
	for _, q := range r.quals {
		if q.TechnicianID == input.TechnicianID && q.ServiceCategoryID == input.ServiceCategoryID {
			return nil, ErrAlreadyQualified
		}
	}
	r.nextID++
	r.seq++
	q := &Qualification{
		ID:                r.nextID,
		Code:              fmt.Sprintf("TECHNI%s%05d", time.Now().Format("06"), r.seq),
		TechnicianID:      input.TechnicianID,
		ServiceCategoryID: input.ServiceCategoryID,
		SubCategoryIDs:    input.SubCategoryIDs,
		Active:            true,
	}
	r.quals[q.ID] = q
	dup := *q
	return &dup, nil
}

func (r *memoryQualRepo) GetByID(ctx context.Context, id int64) (*Qualification, error) {
	q, ok := r.quals[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	dup := *q
	return &dup, nil
}

func (r *memoryQualRepo) ListByTechnician(ctx context.Context, technicianID int64) ([]Qualification, error) {
	var out []Qualification
	for _, q := range r.quals {
		if q.TechnicianID == technicianID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (r *memoryQualRepo) List(ctx context.Context, serviceCategoryID int64) ([]Qualification, error) {
	var out []Qualification
	for _, q := range r.quals {
		if serviceCategoryID == 0 || q.ServiceCategoryID == serviceCategoryID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (r *memoryQualRepo) SetActive(ctx context.Context, id int64, active bool) error {
	q, ok := r.quals[id]
	if !ok {
		return shared.ErrNotFound
	}
	q.Active = active
	return nil
}

func (r *memoryQualRepo) IsQualified(ctx context.Context, technicianID, serviceCategoryID int64) (bool, error) {
	for _, q := range r.quals {
		if q.TechnicianID == technicianID && q.ServiceCategoryID == serviceCategoryID && q.Active {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryQualRepo) Candidates(ctx context.Context, serviceCategoryID int64) ([]Candidate, error) {
	var out []Candidate
	for _, q := range r.quals {
		if q.ServiceCategoryID == serviceCategoryID && q.Active {
			out = append(out, Candidate{TechnicianID: q.TechnicianID, Code: q.Code, ServiceCategoryID: q.ServiceCategoryID})
		}
	}
	return out, nil
}

type fakeUserDirectory struct {
	users map[int64]*issues.TechnicianInfo
}

func (d *fakeUserDirectory) Technician(ctx context.Context, id int64) (*issues.TechnicianInfo, error) {
	info, ok := d.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return info, nil
}

func newQualService() (*Service, *memoryQualRepo) {
	repo := newMemoryQualRepo()
	directory := &fakeUserDirectory{users: map[int64]*issues.TechnicianInfo{
		7:  {ID: 7, Name: "Asha", Role: "technician", Status: "active"},
		9:  {ID: 9, Name: "Ravi", Role: "manager", Status: "active"},
		10: {ID: 10, Name: "Meera", Role: "technician", Status: "active"},
	}}
	return NewService(repo, directory, nil), repo
}

func TestQualifyGeneratesSequentialCodes(t *testing.T) {
	svc, _ := newQualService()
	ctx := context.Background()

	first, err := svc.Qualify(ctx, QualifyInput{TechnicianID: 7, ServiceCategoryID: 3})
	require.NoError(t, err)
	second, err := svc.Qualify(ctx, QualifyInput{TechnicianID: 10, ServiceCategoryID: 3})
	require.NoError(t, err)

	year := time.Now().Format("06")
	require.Equal(t, "TECHNI"+year+"00001", first.Code)
	require.Equal(t, "TECHNI"+year+"00002", second.Code)
	require.True(t, first.Active)
}

func TestQualifyRejectsNonTechnicianRole(t *testing.T) {
	svc, repo := newQualService()

	_, err := svc.Qualify(context.Background(), QualifyInput{TechnicianID: 9, ServiceCategoryID: 3})
	require.Error(t, err)
	require.Empty(t, repo.quals)
}

func TestQualifyRejectsUnknownUser(t *testing.T) {
	svc, _ := newQualService()

	_, err := svc.Qualify(context.Background(), QualifyInput{TechnicianID: 99, ServiceCategoryID: 3})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestQualifyRejectsDuplicateCategory(t *testing.T) {
	svc, _ := newQualService()
	ctx := context.Background()

	_, err := svc.Qualify(ctx, QualifyInput{TechnicianID: 7, ServiceCategoryID: 3})
	require.NoError(t, err)
	_, err = svc.Qualify(ctx, QualifyInput{TechnicianID: 7, ServiceCategoryID: 3})
	require.ErrorIs(t, err, ErrAlreadyQualified)
}

func TestQualifyRequiresCategory(t *testing.T) {
	svc, _ := newQualService()

	_, err := svc.Qualify(context.Background(), QualifyInput{TechnicianID: 7})
	require.Error(t, err)
}

func TestRevokeDisablesQualification(t *testing.T) {
	svc, _ := newQualService()
	ctx := context.Background()

	created, err := svc.Qualify(ctx, QualifyInput{TechnicianID: 7, ServiceCategoryID: 3})
	require.NoError(t, err)

	ok, err := svc.IsQualified(ctx, 7, 3)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.Revoke(ctx, created.ID))

	ok, err = svc.IsQualified(ctx, 7, 3)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, svc.Reinstate(ctx, created.ID))
	ok, err = svc.IsQualified(ctx, 7, 3)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCandidatesRequireCategory(t *testing.T) {
	svc, _ := newQualService()

	_, err := svc.Candidates(context.Background(), 0)
	require.Error(t, err)
}
