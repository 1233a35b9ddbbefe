package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

type memoryCatalogRepo struct {
	categories    map[int64]*Category
	subcategories map[int64]*SubCategory
	skills        map[int64]*Skill
	nextID        int64
}

func newMemoryCatalogRepo() *memoryCatalogRepo {
	return &memoryCatalogRepo{
		categories:    make(map[int64]*Category),
		subcategories: make(map[int64]*SubCategory),
		skills:        make(map[int64]*Skill),
	}
}

func (r *memoryCatalogRepo) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	for _, c := range r.categories {
		if c.Name == input.Name {
			return nil, ErrNameTaken
		}
	}
	r.nextID++
	c := &Category{ID: r.nextID, Name: input.Name, Description: input.Description, IsActive: true}
	r.categories[c.ID] = c
	dup := *c
	return &dup, nil
}

func (r *memoryCatalogRepo) GetCategory(ctx context.Context, id int64) (*Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	dup := *c
	return &dup, nil
}

func (r *memoryCatalogRepo) ListCategories(ctx context.Context, filters ListFilters) ([]Category, int, error) {
	var out []Category
	for _, c := range r.categories {
		if filters.ActiveOnly && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *memoryCatalogRepo) UpdateCategory(ctx context.Context, id int64, input CategoryInput) error {
	c, ok := r.categories[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Name = input.Name
	c.Description = input.Description
	return nil
}

func (r *memoryCatalogRepo) SetCategoryActive(ctx context.Context, id int64, active bool) error {
	c, ok := r.categories[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.IsActive = active
	return nil
}

func (r *memoryCatalogRepo) CreateSubCategory(ctx context.Context, input SubCategoryInput) (*SubCategory, error) {
	r.nextID++
	sc := &SubCategory{ID: r.nextID, CategoryID: input.CategoryID, Name: input.Name, Description: input.Description, SkillIDs: input.SkillIDs, IsActive: true}
	r.subcategories[sc.ID] = sc
	dup := *sc
	return &dup, nil
}

func (r *memoryCatalogRepo) ListSubCategories(ctx context.Context, categoryID int64) ([]SubCategory, error) {
	var out []SubCategory
	for _, sc := range r.subcategories {
		if categoryID == 0 || sc.CategoryID == categoryID {
			out = append(out, *sc)
		}
	}
	return out, nil
}

func (r *memoryCatalogRepo) SetSubCategoryActive(ctx context.Context, id int64, active bool) error {
	sc, ok := r.subcategories[id]
	if !ok {
		return shared.ErrNotFound
	}
	sc.IsActive = active
	return nil
}

func (r *memoryCatalogRepo) CreateSkill(ctx context.Context, input SkillInput, slug string) (*Skill, error) {
	for _, s := range r.skills {
		if s.Slug == slug {
			return nil, ErrNameTaken
		}
	}
	r.nextID++
	s := &Skill{ID: r.nextID, Name: input.Name, Slug: slug, Description: input.Description, RecommendedCategoryIDs: input.RecommendedCategoryIDs, IsActive: true}
	r.skills[s.ID] = s
	dup := *s
	return &dup, nil
}

func (r *memoryCatalogRepo) ListSkills(ctx context.Context, filters ListFilters) ([]Skill, int, error) {
	var out []Skill
	for _, s := range r.skills {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (r *memoryCatalogRepo) SetSkillActive(ctx context.Context, id int64, active bool) error {
	s, ok := r.skills[id]
	if !ok {
		return shared.ErrNotFound
	}
	s.IsActive = active
	return nil
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Display Repair":       "display-repair",
		"  Micro-Soldering  ":  "micro-soldering",
		"OLED / LCD panels":    "oled-lcd-panels",
		"Battery Replacement!": "battery-replacement",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), "slug of %q", in)
	}
}

func TestCreateCategoryTrimsAndValidates(t *testing.T) {
	svc := NewService(newMemoryCatalogRepo(), nil)
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, CategoryInput{Name: "  Display Repair "})
	require.NoError(t, err)
	require.Equal(t, "Display Repair", created.Name)
	require.True(t, created.IsActive)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "   "})
	require.Error(t, err)
}

func TestCreateCategoryRejectsDuplicateName(t *testing.T) {
	svc := NewService(newMemoryCatalogRepo(), nil)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, CategoryInput{Name: "Display Repair"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "Display Repair"})
	require.ErrorIs(t, err, ErrNameTaken)
}

func TestCreateSubCategoryRequiresParent(t *testing.T) {
	repo := newMemoryCatalogRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateSubCategory(ctx, SubCategoryInput{CategoryID: 42, Name: "Panel swap"})
	require.ErrorIs(t, err, shared.ErrNotFound)

	parent, err := svc.CreateCategory(ctx, CategoryInput{Name: "Display Repair"})
	require.NoError(t, err)

	sc, err := svc.CreateSubCategory(ctx, SubCategoryInput{CategoryID: parent.ID, Name: "Panel swap", SkillIDs: []int64{1}})
	require.NoError(t, err)
	require.Equal(t, parent.ID, sc.CategoryID)
}

func TestCreateSkillDerivesSlug(t *testing.T) {
	svc := NewService(newMemoryCatalogRepo(), nil)

	skill, err := svc.CreateSkill(context.Background(), SkillInput{Name: "Micro Soldering"})
	require.NoError(t, err)
	require.Equal(t, "micro-soldering", skill.Slug)
}

func TestToggleCategory(t *testing.T) {
	repo := newMemoryCatalogRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, CategoryInput{Name: "Display Repair"})
	require.NoError(t, err)

	require.NoError(t, svc.SetCategoryActive(ctx, created.ID, false))
	got, err := svc.GetCategory(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	require.ErrorIs(t, svc.SetCategoryActive(ctx, 99, false), shared.ErrNotFound)
}
