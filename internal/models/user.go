package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role is an actor's position in the civic workflow
type Role string

const (
	RoleCitizen         Role = "citizen"
	RoleAdmin           Role = "admin"
	RoleAreaSuperAdmin  Role = "area_super_admin"
	RoleDepartmentAdmin Role = "department_admin"
	RoleContractor      Role = "contractor"
)

var validRoles = map[Role]bool{
	RoleCitizen:         true,
	RoleAdmin:           true,
	RoleAreaSuperAdmin:  true,
	RoleDepartmentAdmin: true,
	RoleContractor:      true,
}

// IsValid returns true if the role is a known role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// IsAdmin reports whether the role may set issue status directly
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleAreaSuperAdmin || r == RoleDepartmentAdmin
}

// User is a platform account: citizen reporter, staff admin, or
// contractor. Points is the gamification running total for citizens.
type User struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	PasswordHash         string    `json:"-"`
	Role                 Role      `json:"role"`
	AssignedAreaID       string    `json:"assigned_area_id,omitempty"`
	AssignedAreaName     string    `json:"assigned_area_name,omitempty"`
	AssignedDepartmentID string    `json:"assigned_department_id,omitempty"`
	Points               int64     `json:"points"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// SetPassword hashes and stores the given plaintext password
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

// CheckPassword reports whether the candidate matches the stored hash
func (u *User) CheckPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}
