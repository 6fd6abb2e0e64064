package postgres

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, name, coalesce(avatar, ''), role, active,
	two_factor_enabled, coalesce(two_factor_secret, ''), coalesce(pending_two_factor_secret, ''),
	two_factor_setup_pending, two_factor_setup_started_at, recovery_codes,
	two_factor_last_step, two_factor_revision,
	created_at, updated_at`

type usersRepo struct {
	pool *pgxpool.Pool
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Avatar, &role, &u.Active,
		&u.TwoFactor.Enabled, &u.TwoFactor.Secret, &u.TwoFactor.PendingSecret,
		&u.TwoFactor.SetupPending, &u.TwoFactor.SetupStartedAt, &u.TwoFactor.RecoveryCodes,
		&u.TwoFactor.LastTOTPStep, &u.TwoFactor.Revision,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapPgErr(err)
	}
	u.Role = domain.Role(role)
	u.TwoFactor.SetupStartedAt = utcPtr(u.TwoFactor.SetupStartedAt)
	if len(u.TwoFactor.RecoveryCodes) == 0 {
		u.TwoFactor.RecoveryCodes = nil
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`select `+userColumns+` from users where id = $1 and active`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`select `+userColumns+` from users where email = $1 and active`,
		strings.ToLower(strings.TrimSpace(email))))
}

func (r *usersRepo) GetUserByIDAny(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `select `+userColumns+` from users where id = $1`, id))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if err := u.TwoFactor.Validate(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
		insert into users (
			id, email, name, avatar, role, active,
			two_factor_enabled, two_factor_secret, pending_two_factor_secret,
			two_factor_setup_pending, two_factor_setup_started_at, recovery_codes,
			two_factor_last_step, two_factor_revision,
			created_at, updated_at
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		u.ID, strings.ToLower(u.Email), u.Name, nullIfEmpty(u.Avatar), string(u.Role), u.Active,
		u.TwoFactor.Enabled, nullIfEmpty(u.TwoFactor.Secret), nullIfEmpty(u.TwoFactor.PendingSecret),
		u.TwoFactor.SetupPending, utcPtr(u.TwoFactor.SetupStartedAt), codesOrNull(u.TwoFactor.RecoveryCodes),
		u.TwoFactor.LastTOTPStep, u.TwoFactor.Revision,
		u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapPgErr(err)
}

func (r *usersRepo) UpdateTwoFactor(ctx context.Context, userID string, tf domain.TwoFactor, now time.Time) error {
	if err := tf.Validate(); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		update users set
			two_factor_enabled = $2,
			two_factor_secret = $3,
			pending_two_factor_secret = $4,
			two_factor_setup_pending = $5,
			two_factor_setup_started_at = $6,
			recovery_codes = $7,
			two_factor_last_step = $8,
			two_factor_revision = two_factor_revision + 1,
			updated_at = $9
		where id = $1 and active and two_factor_revision = $10
	`,
		userID, tf.Enabled, nullIfEmpty(tf.Secret), nullIfEmpty(tf.PendingSecret),
		tf.SetupPending, utcPtr(tf.SetupStartedAt), codesOrNull(tf.RecoveryCodes),
		tf.LastTOTPStep, now.UTC(), tf.Revision,
	)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx,
		`select exists (select 1 from users where id = $1 and active)`, userID).Scan(&exists)
	if err != nil {
		return mapPgErr(err)
	}
	if exists {
		return store.ErrConflict
	}
	return store.ErrNotFound
}

func (r *usersRepo) ConsumeRecoveryCode(ctx context.Context, userID, code string, now time.Time) (int, error) {
	var remaining int
	err := r.pool.QueryRow(ctx, `
		update users set
			recovery_codes = nullif(array_remove(recovery_codes, $2), '{}'),
			two_factor_revision = two_factor_revision + 1,
			updated_at = $3
		where id = $1 and active and two_factor_enabled and $2 = any(recovery_codes)
		returning coalesce(cardinality(recovery_codes), 0)
	`, userID, code, now.UTC()).Scan(&remaining)
	if err != nil {
		return 0, mapPgErr(err)
	}
	return remaining, nil
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`update users set active = $2, updated_at = $3 where id = $1`,
		userID, active, now.UTC())
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) ExpirePendingSetups(ctx context.Context, cutoff, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		update users set
			two_factor_setup_pending = false,
			pending_two_factor_secret = null,
			two_factor_setup_started_at = null,
			two_factor_revision = two_factor_revision + 1,
			updated_at = $2
		where two_factor_setup_pending and two_factor_setup_started_at < $1
		returning id
	`, cutoff.UTC(), now.UTC())
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	slices.Sort(ids)
	return ids, nil
}

// codesOrNull stores an empty set as NULL rather than '{}'.
func codesOrNull(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	return codes
}
