package technicians

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shaid-7908/display-doctor-v2/internal/issues"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// DirectoryPort looks up user accounts, implemented by the users package.
type DirectoryPort interface {
	Technician(ctx context.Context, id int64) (*issues.TechnicianInfo, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates technician qualification records.
type Service struct {
	repo      RepositoryPort
	directory DirectoryPort
	audit     AuditPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, directory DirectoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, directory: directory, audit: audit}
}

var _ issues.QualificationChecker = (*Service)(nil)

// Qualify records that a technician may serve a category. The user must
// exist and hold the technician role.
func (s *Service) Qualify(ctx context.Context, input QualifyInput) (*Qualification, error) {
	if input.ServiceCategoryID == 0 {
		return nil, fmt.Errorf("technicians: service category required")
	}
	tech, err := s.directory.Technician(ctx, input.TechnicianID)
	if err != nil {
		return nil, err
	}
	if tech.Role != "technician" {
		return nil, fmt.Errorf("technicians: user %d has role %s, not technician", input.TechnicianID, tech.Role)
	}

	created, err := s.repo.Qualify(ctx, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "TECHNICIAN_QUALIFY", created.ID, map[string]any{
		"code":        created.Code,
		"technician":  created.TechnicianID,
		"category_id": created.ServiceCategoryID,
	})
	return created, nil
}

// Revoke deactivates a qualification without deleting the record.
func (s *Service) Revoke(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.recordAudit(ctx, "TECHNICIAN_REVOKE", id, nil)
	return nil
}

// Reinstate turns a revoked qualification back on.
func (s *Service) Reinstate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.recordAudit(ctx, "TECHNICIAN_REINSTATE", id, nil)
	return nil
}

// Get fetches a single qualification.
func (s *Service) Get(ctx context.Context, id int64) (*Qualification, error) {
	return s.repo.GetByID(ctx, id)
}

// ByTechnician lists all qualifications a technician holds.
func (s *Service) ByTechnician(ctx context.Context, technicianID int64) ([]Qualification, error) {
	return s.repo.ListByTechnician(ctx, technicianID)
}

// List returns qualifications, optionally filtered by category.
func (s *Service) List(ctx context.Context, serviceCategoryID int64) ([]Qualification, error) {
	return s.repo.List(ctx, serviceCategoryID)
}

// IsQualified satisfies the assignment resolver's qualification check.
func (s *Service) IsQualified(ctx context.Context, technicianID, serviceCategoryID int64) (bool, error) {
	return s.repo.IsQualified(ctx, technicianID, serviceCategoryID)
}

// Candidates returns assignable technicians for a category.
func (s *Service) Candidates(ctx context.Context, serviceCategoryID int64) ([]Candidate, error) {
	if serviceCategoryID == 0 {
		return nil, errors.New("technicians: service category required")
	}
	return s.repo.Candidates(ctx, serviceCategoryID)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorIDFromContext(ctx),
		Action:   action,
		Entity:   shared.AuditEntityTech,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
