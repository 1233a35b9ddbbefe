package catalog

import "time"

// Category is a top-level service area, e.g. display repair.
type Category struct {
	ID          int64
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubCategory narrows a category to a concrete service offering.
type SubCategory struct {
	ID          int64
	CategoryID  int64
	Name        string
	Description string
	IsActive    bool
	SkillIDs    []int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Skill is a capability a sub-category may require from technicians.
type Skill struct {
	ID                     int64
	Name                   string
	Slug                   string
	Description            string
	IsActive               bool
	RecommendedCategoryIDs []int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// CategoryInput carries create/update fields for a category.
type CategoryInput struct {
	Name        string
	Description string
}

// SubCategoryInput carries create/update fields for a sub-category.
type SubCategoryInput struct {
	CategoryID  int64
	Name        string
	Description string
	SkillIDs    []int64
}

// SkillInput carries create/update fields for a skill.
type SkillInput struct {
	Name                   string
	Description            string
	RecommendedCategoryIDs []int64
}

// ListFilters narrows catalog listings.
type ListFilters struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
