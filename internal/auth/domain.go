package auth

import "time"

// User represents an authenticated staff account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the account may log in.
func (u *User) Active() bool {
	return u.Status == "active"
}
