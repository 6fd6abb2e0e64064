// Package storetest is the conformance suite every store driver runs.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
	"github.com/aussiebroadwan/staffdash/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Opener returns a fresh, migrated and empty store for one test.
type Opener func(t *testing.T) store.Store

// Run executes the whole suite against the driver behind open.
func Run(t *testing.T, open Opener) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("active flag", func(t *testing.T) { testActiveFlag(t, open(t)) })
	t.Run("two factor", func(t *testing.T) { testTwoFactor(t, open(t)) })
	t.Run("stale revision", func(t *testing.T) { testStaleRevision(t, open(t)) })
	t.Run("consume recovery code", func(t *testing.T) { testConsumeRecoveryCode(t, open(t)) })
	t.Run("expire pending setups", func(t *testing.T) { testExpirePending(t, open(t)) })
	t.Run("activity", func(t *testing.T) { testActivity(t, open(t)) })
}

// Now is millisecond aligned since that is the coarsest precision any
// driver keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewUser builds a valid active user for tests.
func NewUser(email string, role domain.Role) domain.User {
	now := Now()
	return domain.User{
		ID:        idx.New().String(),
		Email:     email,
		Name:      "Test " + email,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	u := NewUser("alice@agency.test", domain.RoleAdmin)
	u.Avatar = "https://cdn.agency.test/alice.png"
	require.NoError(t, s.Users().CreateUser(ctx, u))

	byID, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, byID.ID)
	require.Equal(t, u.Email, byID.Email)
	require.Equal(t, u.Name, byID.Name)
	require.Equal(t, u.Avatar, byID.Avatar)
	require.Equal(t, domain.RoleAdmin, byID.Role)
	require.True(t, byID.Active)
	require.True(t, u.CreatedAt.Equal(byID.CreatedAt))
	require.Equal(t, domain.TwoFactorDisabled, byID.TwoFactor.Status())

	byEmail, err := s.Users().GetUserByEmail(ctx, "alice@agency.test")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	_, err = s.Users().GetUserByEmail(ctx, "nobody@agency.test")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().GetUserByID(ctx, idx.New().String())
	require.ErrorIs(t, err, store.ErrNotFound)

	dup := NewUser("alice@agency.test", domain.RoleUser)
	require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
}

func testActiveFlag(t *testing.T, s store.Store) {
	ctx := context.Background()

	u := NewUser("bob@agency.test", domain.RoleBilling)
	require.NoError(t, s.Users().CreateUser(ctx, u))

	later := u.UpdatedAt.Add(time.Minute)
	require.NoError(t, s.Users().SetActive(ctx, u.ID, false, later))

	_, err := s.Users().GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Users().GetUserByEmail(ctx, u.Email)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Two-factor writes never reach inactive users
	err = s.Users().UpdateTwoFactor(ctx, u.ID, domain.TwoFactor{}, later)
	require.ErrorIs(t, err, store.ErrNotFound)

	raw, err := s.Users().GetUserByIDAny(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, raw.Active)
	require.True(t, later.Equal(raw.UpdatedAt))

	require.NoError(t, s.Users().SetActive(ctx, u.ID, true, later))
	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)

	require.ErrorIs(t, s.Users().SetActive(ctx, idx.New().String(), true, later), store.ErrNotFound)
}

func testTwoFactor(t *testing.T, s store.Store) {
	ctx := context.Background()

	u := NewUser("carol@agency.test", domain.RoleUser)
	require.NoError(t, s.Users().CreateUser(ctx, u))

	now := u.UpdatedAt.Add(time.Second)
	pending, err := u.TwoFactor.BeginSetup("sealed-pending", now)
	require.NoError(t, err)
	require.NoError(t, s.Users().UpdateTwoFactor(ctx, u.ID, pending, now))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TwoFactorSetupPending, got.TwoFactor.Status())
	require.Equal(t, "sealed-pending", got.TwoFactor.PendingSecret)
	require.NotNil(t, got.TwoFactor.SetupStartedAt)
	require.True(t, now.Equal(*got.TwoFactor.SetupStartedAt))
	require.True(t, now.Equal(got.UpdatedAt))
	require.NoError(t, got.TwoFactor.Validate())

	require.Equal(t, int64(1), got.TwoFactor.Revision)

	codes := []string{"0A1B2C3D", "4E5F6A7B"}
	enabled, err := got.TwoFactor.Confirm(codes)
	require.NoError(t, err)
	enabled, ok := enabled.AcceptTOTPStep(1000)
	require.True(t, ok)
	now = now.Add(time.Second)
	require.NoError(t, s.Users().UpdateTwoFactor(ctx, u.ID, enabled, now))

	got, err = s.Users().GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.True(t, got.TwoFactor.Enabled)
	require.Equal(t, "sealed-pending", got.TwoFactor.Secret)
	require.Empty(t, got.TwoFactor.PendingSecret)
	require.False(t, got.TwoFactor.SetupPending)
	require.Nil(t, got.TwoFactor.SetupStartedAt)
	require.ElementsMatch(t, codes, got.TwoFactor.RecoveryCodes)
	require.Equal(t, int64(1000), got.TwoFactor.LastTOTPStep)
	require.Equal(t, int64(2), got.TwoFactor.Revision)

	now = now.Add(time.Second)
	require.NoError(t, s.Users().UpdateTwoFactor(ctx, u.ID, got.TwoFactor.Disable(), now))

	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), got.TwoFactor.Revision)
	got.TwoFactor.Revision = 0
	require.Equal(t, domain.TwoFactor{}, normalise(got.TwoFactor))
	require.True(t, now.Equal(got.UpdatedAt))

	// Invalid states never reach storage
	err = s.Users().UpdateTwoFactor(ctx, u.ID, domain.TwoFactor{Enabled: true}, now)
	require.ErrorIs(t, err, domain.ErrTwoFactorInvariant)

	err = s.Users().UpdateTwoFactor(ctx, idx.New().String(), domain.TwoFactor{}, now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testStaleRevision(t *testing.T, s store.Store) {
	ctx := context.Background()

	u := NewUser("dave@agency.test", domain.RoleUser)
	require.NoError(t, s.Users().CreateUser(ctx, u))
	now := u.UpdatedAt.Add(time.Second)

	enabled := domain.TwoFactor{Enabled: true, Secret: "sealed", RecoveryCodes: []string{"AAAA0001", "AAAA0002"}}
	require.NoError(t, s.Users().UpdateTwoFactor(ctx, u.ID, enabled, now))

	read, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)

	// Someone else disables after our read
	require.NoError(t, s.Users().UpdateTwoFactor(ctx, u.ID, read.TwoFactor.Disable(), now.Add(time.Second)))

	// A write derived from the earlier read must not bring 2FA back
	consumed, ok := read.TwoFactor.ConsumeRecoveryCode("AAAA0001")
	require.True(t, ok)
	err = s.Users().UpdateTwoFactor(ctx, u.ID, consumed, now.Add(2*time.Second))
	require.ErrorIs(t, err, store.ErrConflict)

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TwoFactorDisabled, got.TwoFactor.Status())
	require.Empty(t, got.TwoFactor.Secret)
	require.Empty(t, got.TwoFactor.RecoveryCodes)
	require.True(t, now.Add(time.Second).Equal(got.UpdatedAt))

	// Missing users are still not found, not a conflict
	err = s.Users().UpdateTwoFactor(ctx, idx.New().String(), domain.TwoFactor{Revision: 5}, now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testConsumeRecoveryCode(t *testing.T, s store.Store) {
	ctx := context.Background()

	u := NewUser("erin@agency.test", domain.RoleUser)
	require.NoError(t, s.Users().CreateUser(ctx, u))
	now := u.UpdatedAt.Add(time.Second)

	// Codes issued before enabling are not consumable
	require.NoError(t, s.Users().UpdateTwoFactor(ctx, u.ID,
		domain.TwoFactor{}.WithRecoveryCodes([]string{"AAAA0001"}), now))
	_, err := s.Users().ConsumeRecoveryCode(ctx, u.ID, "AAAA0001", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	enabled := domain.TwoFactor{
		Enabled:       true,
		Secret:        "sealed",
		RecoveryCodes: []string{"AAAA0001", "AAAA0002"},
		Revision:      got.TwoFactor.Revision,
	}
	require.NoError(t, s.Users().UpdateTwoFactor(ctx, u.ID, enabled, now))

	before, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)

	later := now.Add(time.Minute)
	remaining, err := s.Users().ConsumeRecoveryCode(ctx, u.ID, "AAAA0002", later)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)

	_, err = s.Users().ConsumeRecoveryCode(ctx, u.ID, "AAAA0002", later)
	require.ErrorIs(t, err, store.ErrNotFound, "codes are single use")
	_, err = s.Users().ConsumeRecoveryCode(ctx, u.ID, "FFFF0000", later)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"AAAA0001"}, got.TwoFactor.RecoveryCodes)
	require.True(t, got.TwoFactor.Enabled)
	require.Equal(t, before.TwoFactor.Revision+1, got.TwoFactor.Revision)
	require.True(t, later.Equal(got.UpdatedAt))

	// A write based on the state before the consume is stale
	err = s.Users().UpdateTwoFactor(ctx, u.ID, before.TwoFactor.WithRecoveryCodes([]string{"BBBB0001"}), later)
	require.ErrorIs(t, err, store.ErrConflict)

	remaining, err = s.Users().ConsumeRecoveryCode(ctx, u.ID, "AAAA0001", later)
	require.NoError(t, err)
	require.Zero(t, remaining)

	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, got.TwoFactor.RecoveryCodes)

	require.NoError(t, s.Users().SetActive(ctx, u.ID, false, later))
	_, err = s.Users().ConsumeRecoveryCode(ctx, u.ID, "AAAA0001", later)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testExpirePending(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := Now()

	stale := NewUser("stale@agency.test", domain.RoleUser)
	fresh := NewUser("fresh@agency.test", domain.RoleUser)
	enabled := NewUser("enabled@agency.test", domain.RoleUser)
	for _, u := range []domain.User{stale, fresh, enabled} {
		require.NoError(t, s.Users().CreateUser(ctx, u))
	}

	tf, err := domain.TwoFactor{}.BeginSetup("s1", base.Add(-2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.Users().UpdateTwoFactor(ctx, stale.ID, tf, base))

	tf, err = domain.TwoFactor{}.BeginSetup("s2", base.Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.Users().UpdateTwoFactor(ctx, fresh.ID, tf, base))

	require.NoError(t, s.Users().UpdateTwoFactor(ctx, enabled.ID, domain.TwoFactor{Enabled: true, Secret: "s3"}, base))

	ids, err := s.Users().ExpirePendingSetups(ctx, base.Add(-time.Hour), base.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, []string{stale.ID}, ids)

	got, err := s.Users().GetUserByID(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TwoFactorDisabled, got.TwoFactor.Status())
	require.Empty(t, got.TwoFactor.PendingSecret)
	require.Nil(t, got.TwoFactor.SetupStartedAt)

	got, err = s.Users().GetUserByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TwoFactorSetupPending, got.TwoFactor.Status())

	got, err = s.Users().GetUserByID(ctx, enabled.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TwoFactorEnabled, got.TwoFactor.Status())

	ids, err = s.Users().ExpirePendingSetups(ctx, base.Add(-time.Hour), base)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func testActivity(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := Now()

	userA := idx.New().String()
	userB := idx.New().String()

	for i := range 60 {
		require.NoError(t, s.Activity().AppendActivity(ctx, domain.ActivityLogEntry{
			ID:           idx.New().String(),
			UserID:       userA,
			ActivityType: fmt.Sprintf("event_%02d", i),
			Timestamp:    base.Add(time.Duration(i) * time.Second),
			IPAddress:    "203.0.113.7",
			UserAgent:    "TestBrowser/1.0",
			Details:      map[string]string{"seq": fmt.Sprint(i)},
		}))
	}
	require.NoError(t, s.Activity().AppendActivity(ctx, domain.ActivityLogEntry{
		ID:           idx.New().String(),
		UserID:       userB,
		ActivityType: domain.ActivityTwoFactorDisabled,
		Timestamp:    base,
	}))

	got, err := s.Activity().ListActivityByUser(ctx, userA, 50)
	require.NoError(t, err)
	require.Len(t, got, 50)
	require.Equal(t, "event_59", got[0].ActivityType)
	require.Equal(t, "event_10", got[49].ActivityType)
	for i := 1; i < len(got); i++ {
		require.False(t, got[i].Timestamp.After(got[i-1].Timestamp), "entries must be newest first")
	}
	require.Equal(t, userA, got[0].UserID)
	require.Equal(t, "203.0.113.7", got[0].IPAddress)
	require.Equal(t, "TestBrowser/1.0", got[0].UserAgent)
	require.Equal(t, map[string]string{"seq": "59"}, got[0].Details)
	require.True(t, base.Add(59*time.Second).Equal(got[0].Timestamp))

	got, err = s.Activity().ListActivityByUser(ctx, userB, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Empty(t, got[0].Details)

	got, err = s.Activity().ListActivityByUser(ctx, idx.New().String(), 50)
	require.NoError(t, err)
	require.Empty(t, got)
}

// normalise maps empty slices to nil so drivers that round-trip an empty
// array compare equal to the zero value.
func normalise(tf domain.TwoFactor) domain.TwoFactor {
	if len(tf.RecoveryCodes) == 0 {
		tf.RecoveryCodes = nil
	}
	return tf
}
