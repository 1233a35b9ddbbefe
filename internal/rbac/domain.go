package rbac

import "time"

// Role groups permissions for assignment to users. Seeded roles are admin,
// manager, frontdesk and technician; admins may define more.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is an atomic capability checked by the route guards.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
