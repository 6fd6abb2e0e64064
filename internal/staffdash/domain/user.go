package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

var ErrInvalidEmail = errors.New("domain: invalid email")

// User is a staff account as stored in the document store.
type User struct {
	ID        string
	Email     string // stored lowercased
	Name      string
	Avatar    string
	Role      Role
	Active    bool
	TwoFactor TwoFactor
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormaliseEmail lowercases and trims an address and checks it parses.
func NormaliseEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", ErrInvalidEmail
	}
	return s, nil
}

// UserProjection is the sanitized view of a user returned to clients.
// Secrets and recovery codes never appear here.
type UserProjection struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name,omitempty"`
	Role             Role      `json:"role"`
	Active           bool      `json:"active"`
	Avatar           string    `json:"avatar,omitempty"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (u User) Projection() UserProjection {
	return UserProjection{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		Active:           u.Active,
		Avatar:           u.Avatar,
		TwoFactorEnabled: u.TwoFactor.Enabled,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}
