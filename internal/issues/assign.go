package issues

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// ErrAssignmentRejected reports a technician that failed eligibility vetting.
var ErrAssignmentRejected = errors.New("assignment rejected")

// TechnicianInfo is the slice of a user record the resolver needs.
type TechnicianInfo struct {
	ID     int64
	Name   string
	Phone  string
	Role   string
	Status string
}

// TechnicianDirectory looks up technician accounts, implemented by the users
// package.
type TechnicianDirectory interface {
	Technician(ctx context.Context, id int64) (*TechnicianInfo, error)
}

// QualificationChecker answers whether a technician holds an active
// qualification for a service category, implemented by the technicians
// package.
type QualificationChecker interface {
	IsQualified(ctx context.Context, technicianID, serviceCategoryID int64) (bool, error)
}

// AssignmentResolver vets a candidate technician before an issue is routed
// to them.
type AssignmentResolver struct {
	directory      TechnicianDirectory
	qualifications QualificationChecker
}

// NewAssignmentResolver builds a resolver.
func NewAssignmentResolver(directory TechnicianDirectory, qualifications QualificationChecker) *AssignmentResolver {
	return &AssignmentResolver{directory: directory, qualifications: qualifications}
}

// Resolve returns nil when the technician may take the issue. Every rejection
// wraps ErrAssignmentRejected with the failed check.
func (r *AssignmentResolver) Resolve(ctx context.Context, technicianID, serviceCategoryID int64) error {
	tech, err := r.directory.Technician(ctx, technicianID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return rejected("technician %d not found", technicianID)
		}
		return err
	}
	if tech.Role != "technician" {
		return rejected("user %d has role %s", technicianID, tech.Role)
	}
	if tech.Status != "active" {
		return rejected("technician %d is %s", technicianID, tech.Status)
	}
	if serviceCategoryID != 0 {
		ok, err := r.qualifications.IsQualified(ctx, technicianID, serviceCategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return rejected("technician %d not qualified for category %d", technicianID, serviceCategoryID)
		}
	}
	return nil
}

func rejected(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrAssignmentRejected)...)
}
