package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrConflict      = errors.New("store: stale revision")
)

// Store is the root data access interface implemented by the sqlite, mongo,
// postgres and memory drivers. The backing document store only guarantees
// atomicity for a single document, so the interface offers no transactions:
// every mutation touches exactly one user or appends one activity entry.
type Store interface {
	Users() Users
	Activity() Activity

	// ApplyMigrations brings the schema (or indexes) up to date.
	ApplyMigrations(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetUserByID returns an active user. Inactive users are ErrNotFound.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail returns an active user by lowercased email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByIDAny ignores the active flag. Admin tooling only.
	GetUserByIDAny(ctx context.Context, id string) (domain.User, error)

	// CreateUser inserts a user. The id is provided by the app via ULID.
	// Duplicate ids or emails are ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateTwoFactor replaces the whole two-factor field group of an active
	// user in one write and bumps updated_at. Fields that are empty in tf
	// are removed from the stored document, not blanked.
	//
	// The write only applies when the stored revision equals tf.Revision;
	// otherwise it is ErrConflict and nothing changes. A successful write
	// stores tf.Revision+1.
	UpdateTwoFactor(ctx context.Context, userID string, tf domain.TwoFactor, now time.Time) error

	// ConsumeRecoveryCode removes code from an active user with 2FA enabled
	// in a single conditional write and returns how many codes remain. It is
	// ErrNotFound when no such user holds the code. code must already be
	// normalised.
	ConsumeRecoveryCode(ctx context.Context, userID, code string, now time.Time) (int, error)

	// SetActive flips the soft-delete flag of any user and bumps updated_at.
	SetActive(ctx context.Context, userID string, active bool, now time.Time) error

	// ExpirePendingSetups clears setups started before cutoff and returns
	// the affected user ids. Each cleared user gets a new revision.
	ExpirePendingSetups(ctx context.Context, cutoff, now time.Time) ([]string, error)
}

type Activity interface {
	// AppendActivity stores a new entry. Entries are never updated.
	AppendActivity(ctx context.Context, e domain.ActivityLogEntry) error

	// ListActivityByUser returns up to limit entries, newest first.
	ListActivityByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityLogEntry, error)
}
