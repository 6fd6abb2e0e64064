package domain

import (
	"errors"
	"strings"
)

// Role is the dashboard authorization role carried on users and sessions.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleBilling Role = "billing"
	RoleUser    Role = "user"
)

var ErrInvalidRole = errors.New("domain: invalid role")

// ParseRole accepts any casing of the three known roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleBilling, RoleUser:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) String() string { return string(r) }
