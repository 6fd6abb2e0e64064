package domain

import (
	"crypto/subtle"
	"errors"
	"slices"
	"strings"
	"time"
)

// TwoFactorStatus is the lifecycle state derived from the stored fields.
type TwoFactorStatus string

const (
	TwoFactorDisabled     TwoFactorStatus = "disabled"
	TwoFactorSetupPending TwoFactorStatus = "setup_pending"
	TwoFactorEnabled      TwoFactorStatus = "enabled"
)

// RecoveryCodeCount is how many codes every issuance produces.
const RecoveryCodeCount = 10

var (
	ErrTwoFactorInvariant = errors.New("domain: inconsistent two-factor state")
	ErrTwoFactorEnabled   = errors.New("domain: two-factor already enabled")
	ErrTwoFactorNotSetup  = errors.New("domain: two-factor setup not pending")
)

// TwoFactor is the group of user fields describing second-factor state.
// Secret and PendingSecret hold sealed values, never plaintext. Use the
// transition methods rather than setting fields directly: each returns a
// copy that satisfies Validate.
//
// Revision counts committed writes of the group. Transitions carry it over
// unchanged, and the store only applies a write whose Revision still matches
// the stored one.
type TwoFactor struct {
	Enabled        bool
	Secret         string
	PendingSecret  string
	SetupPending   bool
	SetupStartedAt *time.Time
	RecoveryCodes  []string
	LastTOTPStep   int64 // last accepted time step, codes at or before it are spent
	Revision       int64
}

func (t TwoFactor) Status() TwoFactorStatus {
	switch {
	case t.Enabled:
		return TwoFactorEnabled
	case t.SetupPending:
		return TwoFactorSetupPending
	default:
		return TwoFactorDisabled
	}
}

// Validate checks the field invariants.
func (t TwoFactor) Validate() error {
	if t.Enabled && (t.Secret == "" || t.PendingSecret != "" || t.SetupPending) {
		return ErrTwoFactorInvariant
	}
	if t.SetupPending && (t.PendingSecret == "" || t.Enabled) {
		return ErrTwoFactorInvariant
	}
	if !t.Enabled && t.Secret != "" {
		return ErrTwoFactorInvariant
	}
	if !t.SetupPending && (t.PendingSecret != "" || t.SetupStartedAt != nil) {
		return ErrTwoFactorInvariant
	}
	if !t.Enabled && t.LastTOTPStep != 0 {
		return ErrTwoFactorInvariant
	}
	return nil
}

// BeginSetup stages a new pending secret, replacing any earlier one.
func (t TwoFactor) BeginSetup(sealedSecret string, now time.Time) (TwoFactor, error) {
	if t.Enabled {
		return t, ErrTwoFactorEnabled
	}
	if sealedSecret == "" {
		return t, ErrTwoFactorInvariant
	}
	started := now.UTC()
	return TwoFactor{
		PendingSecret:  sealedSecret,
		SetupPending:   true,
		SetupStartedAt: &started,
		RecoveryCodes:  slices.Clone(t.RecoveryCodes),
		Revision:       t.Revision,
	}, nil
}

// Confirm promotes the pending secret and installs fresh recovery codes.
func (t TwoFactor) Confirm(codes []string) (TwoFactor, error) {
	if !t.SetupPending || t.PendingSecret == "" {
		return t, ErrTwoFactorNotSetup
	}
	return TwoFactor{
		Enabled:       true,
		Secret:        t.PendingSecret,
		RecoveryCodes: slices.Clone(codes),
		Revision:      t.Revision,
	}, nil
}

// Disable returns the fully cleared state. Recovery codes are dropped too so
// nothing from an old enrollment survives a later re-enable.
func (t TwoFactor) Disable() TwoFactor {
	return TwoFactor{Revision: t.Revision}
}

// WithRecoveryCodes replaces the recovery codes and keeps everything else.
func (t TwoFactor) WithRecoveryCodes(codes []string) TwoFactor {
	out := t
	out.RecoveryCodes = slices.Clone(codes)
	return out
}

// NormaliseRecoveryCode puts user input in the stored form: trimmed and
// upper case.
func NormaliseRecoveryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ConsumeRecoveryCode removes code from the set when 2FA is enabled and the
// code matches (case-insensitive). It reports whether a code was consumed.
func (t TwoFactor) ConsumeRecoveryCode(code string) (TwoFactor, bool) {
	if !t.Enabled {
		return t, false
	}
	want := []byte(NormaliseRecoveryCode(code))
	if len(want) == 0 {
		return t, false
	}

	match := -1
	for i, c := range t.RecoveryCodes {
		// keep scanning after a hit so timing does not reveal the position
		if subtle.ConstantTimeCompare([]byte(strings.ToUpper(c)), want) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return t, false
	}

	out := t
	out.RecoveryCodes = slices.Delete(slices.Clone(t.RecoveryCodes), match, match+1)
	return out, true
}

// AcceptTOTPStep marks step as used. It fails when 2FA is not enabled or
// when a code from this step or a later one was already accepted.
func (t TwoFactor) AcceptTOTPStep(step int64) (TwoFactor, bool) {
	if !t.Enabled || step <= t.LastTOTPStep {
		return t, false
	}
	out := t
	out.RecoveryCodes = slices.Clone(t.RecoveryCodes)
	out.LastTOTPStep = step
	return out, true
}

// PendingSince reports whether a pending setup was started before cutoff.
func (t TwoFactor) PendingSince(cutoff time.Time) bool {
	return t.SetupPending && t.SetupStartedAt != nil && t.SetupStartedAt.Before(cutoff)
}
