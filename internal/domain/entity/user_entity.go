package entity

import (
	"time"
)

// Role tags for users. Clinicians own and submit analyses; admin exists for
// account management tooling and carries no extra read access to records.
const (
	RoleClinician = "clinician"
	RoleAdmin     = "admin"
)

// User is the aggregate root for the account domain.
// Passwords are stored as bcrypt hashes in Password.
type User struct {
	ID        string
	Email     string
	Password  string
	Name      string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
