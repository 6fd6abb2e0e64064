package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
)

// Verification methods reported by Verify.
const (
	MethodTOTP         = "totp"
	MethodRecoveryCode = "recovery_code"
)

// AuditPolicy decides what happens when an activity entry cannot be stored
// after the state change it describes has been committed.
type AuditPolicy int

const (
	// AuditBestEffort logs the failure and lets the operation succeed.
	AuditBestEffort AuditPolicy = iota
	// AuditRequired fails the operation with ErrPersistence. The committed
	// state change is not rolled back.
	AuditRequired
)

// Sealer protects TOTP secrets at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Enrollment is what a client needs to add the account to an authenticator.
type Enrollment struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioningUri"`
}

// TwoFactorState summarises a user's second factor without exposing secrets.
type TwoFactorState struct {
	Status                 domain.TwoFactorStatus `json:"status"`
	Enabled                bool                   `json:"enabled"`
	SetupPending           bool                   `json:"setupPending"`
	RecoveryCodesRemaining int                    `json:"recoveryCodesRemaining"`
}

// TwoFactorService drives the per-user two-factor lifecycle:
//
//	disabled -> setup_pending (BeginSetup) -> enabled (ConfirmSetup)
//	enabled or setup_pending -> disabled (Disable)
//
// Every state change is a single UpdateTwoFactor write guarded by the
// revision it was derived from. When another request got there first the
// user is read again and the transition re-evaluated, so a change is never
// applied on top of state it did not see.
type TwoFactorService struct {
	Store       store.Store
	Activity    *ActivityService
	TOTP        *TOTPProvider
	Sealer      Sealer
	AuditPolicy AuditPolicy
	Now         func() time.Time
}

// maxWriteAttempts bounds the re-read loop in mutate.
const maxWriteAttempts = 3

// errCodeMismatch ends a mutate loop without writing when a TOTP code does
// not verify.
var errCodeMismatch = errors.New("totp code mismatch")

func (s *TwoFactorService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *TwoFactorService) totp() *TOTPProvider {
	if s.TOTP == nil {
		return NewTOTPProvider(DefaultIssuer)
	}
	return s.TOTP
}

func (s *TwoFactorService) seal(secret string) (string, error) {
	if s.Sealer == nil {
		return secret, nil
	}
	return s.Sealer.Seal(secret)
}

func (s *TwoFactorService) open(sealed string) (string, error) {
	if s.Sealer == nil {
		return sealed, nil
	}
	return s.Sealer.Open(sealed)
}

// BeginSetup stages a new pending secret for the user with email and returns
// it with its provisioning URI. A setup already in progress is replaced.
func (s *TwoFactorService) BeginSetup(ctx context.Context, email string, meta domain.RequestMeta) (Enrollment, error) {
	var key TOTPKey
	u, err := s.mutate(ctx, s.byEmail(email), func(u domain.User, now time.Time) (domain.TwoFactor, error) {
		if u.TwoFactor.Enabled {
			return domain.TwoFactor{}, ErrAlreadyEnabled
		}
		if key.Secret == "" {
			k, err := s.totp().Generate(u.Email)
			if err != nil {
				return domain.TwoFactor{}, fmt.Errorf("generate totp key: %w", err)
			}
			key = k
		}
		sealed, err := s.seal(key.Secret)
		if err != nil {
			return domain.TwoFactor{}, fmt.Errorf("seal totp secret: %w", err)
		}
		tf, err := u.TwoFactor.BeginSetup(sealed, now)
		return tf, mapTransition(err)
	})
	if err != nil {
		return Enrollment{}, err
	}

	if err := s.audit(ctx, u.ID, domain.ActivityTwoFactorSetupStarted, meta, nil); err != nil {
		return Enrollment{}, err
	}
	return Enrollment{Secret: key.Secret, ProvisioningURI: key.URI}, nil
}

// ConfirmSetup checks code against the pending secret and, on success,
// enables two-factor with a fresh set of recovery codes which it returns.
// This is the only way to reach the enabled state.
func (s *TwoFactorService) ConfirmSetup(ctx context.Context, email, code string, meta domain.RequestMeta) ([]string, error) {
	var (
		codes  []string
		userID string
	)
	_, err := s.mutate(ctx, s.byEmail(email), func(u domain.User, now time.Time) (domain.TwoFactor, error) {
		userID = u.ID
		if u.TwoFactor.Status() != domain.TwoFactorSetupPending {
			return domain.TwoFactor{}, ErrSetupNotPending
		}

		secret, err := s.open(u.TwoFactor.PendingSecret)
		if err != nil {
			return domain.TwoFactor{}, persistence("open pending secret", err)
		}
		step, ok := s.totp().Match(secret, code, now)
		if !ok {
			return domain.TwoFactor{}, errCodeMismatch
		}

		if codes == nil {
			if codes, err = GenerateRecoveryCodes(); err != nil {
				return domain.TwoFactor{}, err
			}
		}
		tf, err := u.TwoFactor.Confirm(codes)
		if err != nil {
			return domain.TwoFactor{}, mapTransition(err)
		}
		// the confirming code may not be replayed at login
		tf, _ = tf.AcceptTOTPStep(step)
		return tf, nil
	})
	if errors.Is(err, errCodeMismatch) {
		if err := s.audit(ctx, userID, domain.ActivityTwoFactorConfirmFailed, meta, nil); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}

	if err := s.audit(ctx, userID, domain.ActivityTwoFactorEnabled, meta, nil); err != nil {
		return nil, err
	}
	return codes, nil
}

// Disable clears every two-factor field including recovery codes. It is
// idempotent and returns the sanitized user.
func (s *TwoFactorService) Disable(ctx context.Context, userID string, meta domain.RequestMeta) (domain.UserProjection, error) {
	u, err := s.mutate(ctx, s.byID(userID), func(u domain.User, _ time.Time) (domain.TwoFactor, error) {
		return u.TwoFactor.Disable(), nil
	})
	if err != nil {
		return domain.UserProjection{}, err
	}

	if err := s.audit(ctx, u.ID, domain.ActivityTwoFactorDisabled, meta, nil); err != nil {
		return domain.UserProjection{}, err
	}
	return u.Projection(), nil
}

// IssueRecoveryCodes replaces the user's recovery codes with a fresh set.
// Two-factor need not be enabled; the codes become usable once it is.
func (s *TwoFactorService) IssueRecoveryCodes(ctx context.Context, email string, meta domain.RequestMeta) ([]string, error) {
	codes, err := GenerateRecoveryCodes()
	if err != nil {
		return nil, err
	}

	u, err := s.mutate(ctx, s.byEmail(email), func(u domain.User, _ time.Time) (domain.TwoFactor, error) {
		return u.TwoFactor.WithRecoveryCodes(codes), nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit(ctx, u.ID, domain.ActivityRecoveryCodesGenerated, meta, nil); err != nil {
		return nil, err
	}
	return codes, nil
}

// ListRecoveryCodes returns the stored recovery codes, never nil.
func (s *TwoFactorService) ListRecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	u, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.TwoFactor.Enabled {
		return nil, ErrNotEnabled
	}
	codes := append([]string{}, u.TwoFactor.RecoveryCodes...)
	return codes, nil
}

func (s *TwoFactorService) Status(ctx context.Context, userID string) (TwoFactorState, error) {
	u, err := s.userByID(ctx, userID)
	if err != nil {
		return TwoFactorState{}, err
	}
	state := TwoFactorState{
		Status:       u.TwoFactor.Status(),
		Enabled:      u.TwoFactor.Enabled,
		SetupPending: u.TwoFactor.SetupPending,
	}
	if u.TwoFactor.Enabled {
		state.RecoveryCodesRemaining = len(u.TwoFactor.RecoveryCodes)
	}
	return state, nil
}

// Verify checks a login-time second factor. A current TOTP code is tried
// first, then the recovery codes; a matching recovery code is consumed.
// A TOTP code is accepted once: its time step is recorded and codes from
// that step or earlier are refused afterwards. It returns the method that
// succeeded.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code string, meta domain.RequestMeta) (string, error) {
	_, err := s.mutate(ctx, s.byID(userID), func(u domain.User, now time.Time) (domain.TwoFactor, error) {
		if !u.TwoFactor.Enabled {
			return domain.TwoFactor{}, ErrNotEnabled
		}
		secret, err := s.open(u.TwoFactor.Secret)
		if err != nil {
			return domain.TwoFactor{}, persistence("open secret", err)
		}
		step, ok := s.totp().Match(secret, code, now)
		if !ok {
			return domain.TwoFactor{}, errCodeMismatch
		}
		tf, ok := u.TwoFactor.AcceptTOTPStep(step)
		if !ok {
			return domain.TwoFactor{}, errCodeMismatch
		}
		return tf, nil
	})
	switch {
	case err == nil:
		details := map[string]string{"method": MethodTOTP}
		if err := s.audit(ctx, userID, domain.ActivityTwoFactorVerified, meta, details); err != nil {
			return "", err
		}
		return MethodTOTP, nil
	case !errors.Is(err, errCodeMismatch):
		return "", err
	}

	if recovery := domain.NormaliseRecoveryCode(code); recovery != "" {
		remaining, err := s.Store.Users().ConsumeRecoveryCode(ctx, userID, recovery, s.now())
		switch {
		case err == nil:
			details := map[string]string{"remaining": strconv.Itoa(remaining)}
			if err := s.audit(ctx, userID, domain.ActivityRecoveryCodeUsed, meta, details); err != nil {
				return "", err
			}
			return MethodRecoveryCode, nil
		case !errors.Is(err, store.ErrNotFound):
			return "", persistence("consume recovery code", err)
		}
	}

	if err := s.audit(ctx, userID, domain.ActivityTwoFactorVerifyFailed, meta, nil); err != nil {
		return "", err
	}
	return "", ErrInvalidCode
}

// ExpireStaleSetups aborts setups started more than olderThan ago and
// returns how many were cleared.
func (s *TwoFactorService) ExpireStaleSetups(ctx context.Context, olderThan time.Duration) (int, error) {
	now := s.now()
	ids, err := s.Store.Users().ExpirePendingSetups(ctx, now.Add(-olderThan), now)
	if err != nil {
		return 0, persistence("expire pending setups", err)
	}

	details := map[string]string{"ttl": olderThan.String()}
	for _, id := range ids {
		err := s.Activity.Record(ctx, domain.ActivityLogEntry{
			UserID:       id,
			ActivityType: domain.ActivityTwoFactorSetupExpired,
			Details:      details,
		})
		if err != nil {
			logActivityFailure(ctx, domain.ActivityTwoFactorSetupExpired, id, err)
		}
	}
	return len(ids), nil
}

type userLoader func(ctx context.Context) (domain.User, error)

func (s *TwoFactorService) byEmail(email string) userLoader {
	return func(ctx context.Context) (domain.User, error) {
		u, err := s.Store.Users().GetUserByEmail(ctx, email)
		return u, mapLookup(err)
	}
}

func (s *TwoFactorService) byID(id string) userLoader {
	return func(ctx context.Context) (domain.User, error) {
		u, err := s.Store.Users().GetUserByID(ctx, id)
		return u, mapLookup(err)
	}
}

func (s *TwoFactorService) userByID(ctx context.Context, id string) (domain.User, error) {
	return s.byID(id)(ctx)
}

// mutate loads the user, derives the new two-factor group with change and
// writes it against the revision that was read. A stale revision means a
// concurrent write won, so the user is loaded again and change re-run on
// the fresh state. An error from change is returned as is, with nothing
// written. The returned user reflects the committed write.
func (s *TwoFactorService) mutate(
	ctx context.Context,
	load userLoader,
	change func(u domain.User, now time.Time) (domain.TwoFactor, error),
) (domain.User, error) {
	for range maxWriteAttempts {
		u, err := load(ctx)
		if err != nil {
			return domain.User{}, err
		}

		now := s.now()
		tf, err := change(u, now)
		if err != nil {
			return u, err
		}

		err = s.Store.Users().UpdateTwoFactor(ctx, u.ID, tf, now)
		switch {
		case err == nil:
			tf.Revision++
			u.TwoFactor = tf
			u.UpdatedAt = now
			return u, nil
		case errors.Is(err, store.ErrConflict):
			continue
		case errors.Is(err, store.ErrNotFound):
			// deactivated between lookup and write
			return domain.User{}, ErrUserNotFound
		default:
			return domain.User{}, persistence("update two-factor", err)
		}
	}
	return domain.User{}, ErrConcurrentUpdate
}

func (s *TwoFactorService) audit(ctx context.Context, userID, activityType string, meta domain.RequestMeta, details map[string]string) error {
	err := s.Activity.Record(ctx, domain.ActivityLogEntry{
		UserID:       userID,
		ActivityType: activityType,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Details:      details,
	})
	if err == nil {
		return nil
	}
	if s.AuditPolicy == AuditRequired {
		return err
	}
	logActivityFailure(ctx, activityType, userID, err)
	return nil
}

func mapLookup(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	default:
		return persistence("lookup user", err)
	}
}

func mapTransition(err error) error {
	switch {
	case errors.Is(err, domain.ErrTwoFactorEnabled):
		return ErrAlreadyEnabled
	case errors.Is(err, domain.ErrTwoFactorNotSetup):
		return ErrSetupNotPending
	default:
		return fmt.Errorf("two-factor transition: %w", err)
	}
}
