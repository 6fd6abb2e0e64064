package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrNotEnabled      = errors.New("two-factor authentication is not enabled")
	ErrAlreadyEnabled  = errors.New("two-factor authentication is already enabled")
	ErrSetupNotPending = errors.New("no two-factor setup in progress")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmailTaken      = errors.New("email already in use")
	ErrPersistence     = errors.New("persistence failure")
)

// ErrConcurrentUpdate means the two-factor state kept changing under a write
// until the retry budget ran out.
var ErrConcurrentUpdate = errors.New("two-factor state changed concurrently")

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
