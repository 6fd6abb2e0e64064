package domain_test

import (
	"testing"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/stretchr/testify/require"
)

func TestNormaliseEmail(t *testing.T) {
	t.Parallel()

	got, err := domain.NormaliseEmail("  Alice@Agency.Test ")
	require.NoError(t, err)
	require.Equal(t, "alice@agency.test", got)

	for _, in := range []string{"", "alice", "Alice <alice@agency.test>", "@agency.test"} {
		_, err := domain.NormaliseEmail(in)
		require.ErrorIs(t, err, domain.ErrInvalidEmail, "input %q", in)
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	r, err := domain.ParseRole(" Billing ")
	require.NoError(t, err)
	require.Equal(t, domain.RoleBilling, r)

	_, err = domain.ParseRole("owner")
	require.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestProjectionOmitsSecrets(t *testing.T) {
	t.Parallel()

	u := domain.User{
		ID:    "u1",
		Email: "a@x.com",
		Role:  domain.RoleUser,
		TwoFactor: domain.TwoFactor{
			Enabled:       true,
			Secret:        "sealed",
			RecoveryCodes: []string{"AAAA0001"},
		},
	}
	p := u.Projection()
	require.True(t, p.TwoFactorEnabled)
	require.Equal(t, "u1", p.ID)
}
