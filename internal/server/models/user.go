package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of authorization roles a user can hold.
type Role string

const (
	RoleRegularUser Role = "RegularUser"
	RoleInstructor  Role = "Instructor"
	RoleAdmin       Role = "Admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleRegularUser, RoleInstructor, RoleAdmin}

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRegularUser, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// ParseRole maps a case-insensitive role name to a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is a platform account.
//
// TokensValidAfter, when set, invalidates every access token issued before
// it. It is bumped on password reset.
type User struct {
	ID                string
	FullName          string
	Email             string
	PasswordHash      string
	Role              Role
	IsActive          bool
	IsDeleted         bool
	IsSystemProtected bool
	TokensValidAfter  *time.Time
	CreatedAt         time.Time
}
