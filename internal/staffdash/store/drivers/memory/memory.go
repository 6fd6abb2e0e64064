// Package memory is an in-process store driver used by tests and by
// STAFFDASH_STORE_DRIVER=memory for local runs. Nothing survives a restart.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
)

type Store struct {
	mu sync.Mutex

	users    map[string]domain.User
	activity map[string][]domain.ActivityLogEntry
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		activity: make(map[string][]domain.ActivityLogEntry),
	}
}

func (s *Store) Users() store.Users       { return (*usersRepo)(s) }
func (s *Store) Activity() store.Activity { return (*activityRepo)(s) }

func (s *Store) ApplyMigrations(context.Context) error { return nil }
func (s *Store) Close() error                          { return nil }
func (s *Store) Ping(context.Context) error            { return nil }

type usersRepo Store

func (r *usersRepo) GetUserByID(_ context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || !u.Active {
		return domain.User{}, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *usersRepo) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Active && u.Email == email {
			return cloneUser(u), nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (r *usersRepo) GetUserByIDAny(_ context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *usersRepo) CreateUser(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = strings.ToLower(u.Email)
	if _, ok := r.users[u.ID]; ok {
		return store.ErrAlreadyExists
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return store.ErrAlreadyExists
		}
	}
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *usersRepo) UpdateTwoFactor(_ context.Context, userID string, tf domain.TwoFactor, now time.Time) error {
	if err := tf.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || !u.Active {
		return store.ErrNotFound
	}
	if u.TwoFactor.Revision != tf.Revision {
		return store.ErrConflict
	}
	u.TwoFactor = cloneTwoFactor(tf)
	u.TwoFactor.Revision++
	u.UpdatedAt = now.UTC()
	r.users[userID] = u
	return nil
}

func (r *usersRepo) ConsumeRecoveryCode(_ context.Context, userID, code string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || !u.Active {
		return 0, store.ErrNotFound
	}
	i := slices.Index(u.TwoFactor.RecoveryCodes, code)
	if !u.TwoFactor.Enabled || i < 0 {
		return 0, store.ErrNotFound
	}
	u.TwoFactor = cloneTwoFactor(u.TwoFactor)
	u.TwoFactor.RecoveryCodes = slices.Delete(u.TwoFactor.RecoveryCodes, i, i+1)
	u.TwoFactor.Revision++
	u.UpdatedAt = now.UTC()
	r.users[userID] = u
	return len(u.TwoFactor.RecoveryCodes), nil
}

func (r *usersRepo) SetActive(_ context.Context, userID string, active bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Active = active
	u.UpdatedAt = now.UTC()
	r.users[userID] = u
	return nil
}

func (r *usersRepo) ExpirePendingSetups(_ context.Context, cutoff, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := []string{}
	for id, u := range r.users {
		if !u.TwoFactor.PendingSince(cutoff) {
			continue
		}
		u.TwoFactor.SetupPending = false
		u.TwoFactor.PendingSecret = ""
		u.TwoFactor.SetupStartedAt = nil
		u.TwoFactor.Revision++
		u.UpdatedAt = now.UTC()
		r.users[id] = u
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type activityRepo Store

func (r *activityRepo) AppendActivity(_ context.Context, e domain.ActivityLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.Details = maps.Clone(e.Details)
	r.activity[e.UserID] = append(r.activity[e.UserID], e)
	return nil
}

func (r *activityRepo) ListActivityByUser(_ context.Context, userID string, limit int) ([]domain.ActivityLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := slices.Clone(r.activity[userID])
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].ID > entries[j].ID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.ActivityLogEntry, len(entries))
	for i, e := range entries {
		e.Details = maps.Clone(e.Details)
		out[i] = e
	}
	return out, nil
}

func cloneUser(u domain.User) domain.User {
	u.TwoFactor = cloneTwoFactor(u.TwoFactor)
	return u
}

func cloneTwoFactor(tf domain.TwoFactor) domain.TwoFactor {
	tf.RecoveryCodes = slices.Clone(tf.RecoveryCodes)
	if tf.SetupStartedAt != nil {
		started := tf.SetupStartedAt.UTC()
		tf.SetupStartedAt = &started
	}
	return tf
}
