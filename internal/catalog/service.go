package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the service catalog.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateCategory adds a service category.
func (s *Service) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, errors.New("catalog: category name required")
	}
	created, err := s.repo.CreateCategory(ctx, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "CATALOG_CATEGORY_CREATE", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

// GetCategory fetches one category.
func (s *Service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// ListCategories lists categories with optional search.
func (s *Service) ListCategories(ctx context.Context, filters ListFilters) ([]Category, int, error) {
	return s.repo.ListCategories(ctx, filters)
}

// UpdateCategory rewrites a category.
func (s *Service) UpdateCategory(ctx context.Context, id int64, input CategoryInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return errors.New("catalog: category name required")
	}
	if err := s.repo.UpdateCategory(ctx, id, input); err != nil {
		return err
	}
	s.recordAudit(ctx, "CATALOG_CATEGORY_UPDATE", id, map[string]any{"name": input.Name})
	return nil
}

// SetCategoryActive toggles a category on or off.
func (s *Service) SetCategoryActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetCategoryActive(ctx, id, active); err != nil {
		return err
	}
	s.recordAudit(ctx, "CATALOG_CATEGORY_TOGGLE", id, map[string]any{"active": active})
	return nil
}

// CreateSubCategory adds a sub-category; the parent must exist.
func (s *Service) CreateSubCategory(ctx context.Context, input SubCategoryInput) (*SubCategory, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, errors.New("catalog: sub-category name required")
	}
	if _, err := s.repo.GetCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}
	created, err := s.repo.CreateSubCategory(ctx, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "CATALOG_SUBCATEGORY_CREATE", created.ID, map[string]any{"name": created.Name, "category_id": created.CategoryID})
	return created, nil
}

// ListSubCategories lists sub-categories, optionally for one category.
func (s *Service) ListSubCategories(ctx context.Context, categoryID int64) ([]SubCategory, error) {
	return s.repo.ListSubCategories(ctx, categoryID)
}

// SetSubCategoryActive toggles a sub-category.
func (s *Service) SetSubCategoryActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetSubCategoryActive(ctx, id, active)
}

// CreateSkill adds a skill, deriving its slug from the name.
func (s *Service) CreateSkill(ctx context.Context, input SkillInput) (*Skill, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, errors.New("catalog: skill name required")
	}
	created, err := s.repo.CreateSkill(ctx, input, Slugify(input.Name))
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "CATALOG_SKILL_CREATE", created.ID, map[string]any{"slug": created.Slug})
	return created, nil
}

// ListSkills lists skills with optional search.
func (s *Service) ListSkills(ctx context.Context, filters ListFilters) ([]Skill, int, error) {
	return s.repo.ListSkills(ctx, filters)
}

// SetSkillActive toggles a skill.
func (s *Service) SetSkillActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetSkillActive(ctx, id, active)
}

// Slugify lowercases the name and collapses runs of non-alphanumerics into
// single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorIDFromContext(ctx),
		Action:   action,
		Entity:   shared.AuditEntityCatalog,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
