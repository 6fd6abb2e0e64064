package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store/drivers/memory"
	"github.com/aussiebroadwan/staffdash/pkg/cryptox"
	"github.com/aussiebroadwan/staffdash/pkg/idx"
	"github.com/aussiebroadwan/staffdash/pkg/slogx"
	"github.com/stretchr/testify/require"
)

var testMeta = domain.RequestMeta{IPAddress: "198.51.100.4", UserAgent: "service-test/1.0"}

// clock is a settable time source shared by the services under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store     store.Store
	clock     *clock
	box       *cryptox.SecretBox
	activity  *ActivityService
	twoFactor *TwoFactorService
	users     *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.NewStore())
}

func newFixtureWithStore(t *testing.T, s store.Store) *fixture {
	t.Helper()

	box, err := cryptox.NewEphemeralSecretBox()
	require.NoError(t, err)

	c := newClock()
	activity := &ActivityService{Store: s, Logger: slogx.Discard(), Sink: SinkDB, Now: c.Now}
	return &fixture{
		store:    s,
		clock:    c,
		box:      box,
		activity: activity,
		twoFactor: &TwoFactorService{
			Store:    s,
			Activity: activity,
			TOTP:     NewTOTPProvider("Staff Dashboard"),
			Sealer:   box,
			Now:      c.Now,
		},
		users: &UserService{Store: s, Activity: activity, Now: c.Now},
	}
}

func (f *fixture) createUser(t *testing.T, email string) domain.User {
	t.Helper()
	now := f.clock.Now()
	u := domain.User{
		ID:        idx.New().String(),
		Email:     email,
		Name:      "Staff " + email,
		Role:      domain.RoleUser,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.store.Users().CreateUser(context.Background(), u))
	return u
}

func (f *fixture) user(t *testing.T, id string) domain.User {
	t.Helper()
	u, err := f.store.Users().GetUserByIDAny(context.Background(), id)
	require.NoError(t, err)
	return u
}

// enable walks a user through setup and confirmation and returns the
// plaintext secret and recovery codes.
func (f *fixture) enable(t *testing.T, u domain.User) (string, []string) {
	t.Helper()
	ctx := context.Background()

	enrollment, err := f.twoFactor.BeginSetup(ctx, u.Email, testMeta)
	require.NoError(t, err)

	code, err := f.twoFactor.TOTP.Code(enrollment.Secret, f.clock.Now())
	require.NoError(t, err)

	codes, err := f.twoFactor.ConfirmSetup(ctx, u.Email, code, testMeta)
	require.NoError(t, err)
	return enrollment.Secret, codes
}

func (f *fixture) activityTypes(t *testing.T, userID string) []string {
	t.Helper()
	entries, err := f.activity.ListForUser(context.Background(), userID, 0)
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ActivityType
	}
	return out
}

var errActivityDown = errors.New("activity store unavailable")

// brokenActivityStore fails every activity write.
type brokenActivityStore struct {
	store.Store
}

func (b brokenActivityStore) Activity() store.Activity { return brokenActivity{} }

type brokenActivity struct{}

func (brokenActivity) AppendActivity(context.Context, domain.ActivityLogEntry) error {
	return errActivityDown
}

func (brokenActivity) ListActivityByUser(context.Context, string, int) ([]domain.ActivityLogEntry, error) {
	return nil, errActivityDown
}

// interleavedStore runs interleave once, straight after the first user read,
// so a competing write lands between a service's read and its own write.
type interleavedStore struct {
	store.Store
	once       *sync.Once
	interleave func()
}

func newInterleavedStore(s store.Store, interleave func()) interleavedStore {
	return interleavedStore{Store: s, once: &sync.Once{}, interleave: interleave}
}

func (s interleavedStore) Users() store.Users {
	return interleavedUsers{Users: s.Store.Users(), s: s}
}

type interleavedUsers struct {
	store.Users
	s interleavedStore
}

func (u interleavedUsers) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	user, err := u.Users.GetUserByID(ctx, id)
	u.s.once.Do(u.s.interleave)
	return user, err
}

func (u interleavedUsers) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := u.Users.GetUserByEmail(ctx, email)
	u.s.once.Do(u.s.interleave)
	return user, err
}

// staleStore reports every two-factor write as stale.
type staleStore struct {
	store.Store
}

func (s staleStore) Users() store.Users { return staleUsers{s.Store.Users()} }

type staleUsers struct {
	store.Users
}

func (staleUsers) UpdateTwoFactor(context.Context, string, domain.TwoFactor, time.Time) error {
	return store.ErrConflict
}
