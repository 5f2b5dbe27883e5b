package domain

import "time"

// Role enumerates what a user may see and do.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{
	RoleEmployee: 1,
	RoleAgent:    2,
	RoleAdmin:    3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r meets the minimum role.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && r.Valid()
}

// CanWork reports whether the role can be assigned tickets and requests.
func (r Role) CanWork() bool {
	return r == RoleAgent || r == RoleAdmin
}

// User is an employee, agent or administrator.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Department   string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
