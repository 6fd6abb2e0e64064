package staffdash_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/staffdash/pkg/dashsdk"
)

// TestTwoFactorAgainstMongo walks a new staff member through enrollment,
// recovery code use and disable, with an admin reviewing the history.
func TestTwoFactorAgainstMongo(t *testing.T) {
	cfg := e2eConfig(startMongo(t), newDatabaseName())
	baseURL := startService(t, cfg)
	ctx := t.Context()

	health, err := dashsdk.NewClient(baseURL).Readyz(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)

	admin := sessionClient(t, baseURL, lookupUser(t, cfg, adminEmail))
	staff, err := admin.CreateUser(ctx, dashsdk.CreateUserRequest{
		Email: "case.worker@agency.test",
		Name:  "Case Worker",
		Role:  "user",
	})
	require.NoError(t, err)

	client := sessionClient(t, baseURL, staff)

	_, err = client.ListRecoveryCodes(ctx)
	require.Equal(t, http.StatusBadRequest, dashsdk.StatusCode(err))

	enrollment, err := client.BeginSetup(ctx)
	require.NoError(t, err)
	t.Logf("enrollment started: %s", enrollment.ProvisioningURI)

	codes, err := client.ConfirmSetup(ctx, currentCode(t, enrollment.Secret))
	require.NoError(t, err)
	require.Len(t, codes, 10)

	method, err := client.Verify(ctx, codes[3])
	require.NoError(t, err)
	require.Equal(t, "recovery_code", method)

	_, err = client.Verify(ctx, codes[3])
	require.Equal(t, http.StatusBadRequest, dashsdk.StatusCode(err), "recovery codes are single use")

	remaining, err := client.ListRecoveryCodes(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 9)
	require.NotContains(t, remaining, codes[3])

	disabled, err := client.DisableTwoFactor(ctx)
	require.NoError(t, err)
	require.False(t, disabled.User.TwoFactorEnabled)

	history, err := admin.UserActivity(ctx, staff.ID, 0)
	require.NoError(t, err)
	types := make([]string, 0, len(history))
	for _, e := range history {
		types = append(types, e.ActivityType)
	}
	require.Equal(t, []string{
		"2fa_disabled",
		"2fa_verify_failed",
		"recovery_code_used",
		"2fa_enabled",
		"2fa_setup_started",
		"user_created",
	}, types)
}

// TestSecretsSurviveRestart checks a second instance with the same master key
// can verify codes for a secret enrolled through the first.
func TestSecretsSurviveRestart(t *testing.T) {
	cfg := e2eConfig(startMongo(t), newDatabaseName())
	ctx := t.Context()

	first := startService(t, cfg)
	admin := sessionClient(t, first, lookupUser(t, cfg, adminEmail))

	enrollment, err := admin.BeginSetup(ctx)
	require.NoError(t, err)
	_, err = admin.ConfirmSetup(ctx, currentCode(t, enrollment.Secret))
	require.NoError(t, err)

	second := startService(t, cfg)
	method, err := sessionClient(t, second, lookupUser(t, cfg, adminEmail)).Verify(ctx, nextCode(t, enrollment.Secret))
	require.NoError(t, err)
	require.Equal(t, "totp", method)
}
