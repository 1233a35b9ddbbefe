package technicians

import (
	"errors"
	"time"
)

// ErrAlreadyQualified indicates the technician already holds a qualification
// for the service category.
var ErrAlreadyQualified = errors.New("technicians: already qualified for category")

// Qualification links a technician to a service category they may be
// assigned issues from. Sub-category ids narrow the record inside the
// category; an empty slice means the whole category.
type Qualification struct {
	ID                int64
	Code              string
	TechnicianID      int64
	TechnicianName    string
	ServiceCategoryID int64
	CategoryName      string
	SubCategoryIDs    []int64
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// QualifyInput carries the fields needed to record a qualification.
type QualifyInput struct {
	TechnicianID      int64
	ServiceCategoryID int64
	SubCategoryIDs    []int64
}

// Candidate is a technician eligible for assignment within a category:
// active account, technician role, active qualification.
type Candidate struct {
	TechnicianID      int64
	Name              string
	Phone             string
	Code              string
	ServiceCategoryID int64
}
