package users

import "time"

// Role enumerates account roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleCaller     Role = "caller"
	RoleTechnician Role = "technician"
)

// ValidRole reports whether r names a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCaller, RoleTechnician:
		return true
	}
	return false
}

// Account statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User represents a staff account.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserInput carries validated onboarding fields.
type CreateUserInput struct {
	Name  string
	Email string
	Phone string
	Role  Role
}
