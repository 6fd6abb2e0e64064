package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
)

const userColumns = `id, email, name, avatar, role, active,
	two_factor_enabled, two_factor_secret, pending_two_factor_secret,
	two_factor_setup_pending, two_factor_setup_started_at, recovery_codes,
	two_factor_last_step, two_factor_revision,
	created_at, updated_at`

type usersRepo struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                   domain.User
		avatar              sql.NullString
		role                string
		secret, pending     sql.NullString
		startedAt           sql.NullInt64
		codes               sql.NullString
		createdAt, updateAt int64
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &avatar, &role, &u.Active,
		&u.TwoFactor.Enabled, &secret, &pending,
		&u.TwoFactor.SetupPending, &startedAt, &codes,
		&u.TwoFactor.LastTOTPStep, &u.TwoFactor.Revision,
		&createdAt, &updateAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Avatar = avatar.String
	u.Role = domain.Role(role)
	u.TwoFactor.Secret = secret.String
	u.TwoFactor.PendingSecret = pending.String
	u.TwoFactor.SetupStartedAt = mapNullTimePtr(startedAt)
	if u.TwoFactor.RecoveryCodes, err = decodeCodes(codes); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updateAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND active = 1`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND active = 1`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func (r *usersRepo) GetUserByIDAny(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if err := u.TwoFactor.Validate(); err != nil {
		return err
	}
	codes, err := encodeCodes(u.TwoFactor.RecoveryCodes)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.Name, mapStringNull(u.Avatar), string(u.Role), u.Active,
		u.TwoFactor.Enabled, mapStringNull(u.TwoFactor.Secret), mapStringNull(u.TwoFactor.PendingSecret),
		u.TwoFactor.SetupPending, mapOptionalTime(u.TwoFactor.SetupStartedAt), codes,
		u.TwoFactor.LastTOTPStep, u.TwoFactor.Revision,
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	return mapConflict(err)
}

func (r *usersRepo) UpdateTwoFactor(ctx context.Context, userID string, tf domain.TwoFactor, now time.Time) error {
	if err := tf.Validate(); err != nil {
		return err
	}
	codes, err := encodeCodes(tf.RecoveryCodes)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `UPDATE users SET
		two_factor_enabled = ?,
		two_factor_secret = ?,
		pending_two_factor_secret = ?,
		two_factor_setup_pending = ?,
		two_factor_setup_started_at = ?,
		recovery_codes = ?,
		two_factor_last_step = ?,
		two_factor_revision = two_factor_revision + 1,
		updated_at = ?
		WHERE id = ? AND active = 1 AND two_factor_revision = ?`,
		tf.Enabled, mapStringNull(tf.Secret), mapStringNull(tf.PendingSecret),
		tf.SetupPending, mapOptionalTime(tf.SetupStartedAt), codes,
		tf.LastTOTPStep, toMillis(now), userID, tf.Revision,
	)
	if err := requireOneRow(res, err); !errors.Is(err, store.ErrNotFound) {
		return err
	}

	// Nothing matched: either the user is gone or the revision moved on.
	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = ? AND active = 1)`, userID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return store.ErrConflict
	}
	return store.ErrNotFound
}

func (r *usersRepo) ConsumeRecoveryCode(ctx context.Context, userID, code string, now time.Time) (int, error) {
	var remaining sql.NullString
	err := r.db.QueryRowContext(ctx, `UPDATE users SET
		recovery_codes = NULLIF(
			(SELECT json_group_array(value) FROM json_each(users.recovery_codes) WHERE value <> ?),
			'[]'),
		two_factor_revision = two_factor_revision + 1,
		updated_at = ?
		WHERE id = ? AND active = 1 AND two_factor_enabled = 1
		AND EXISTS (SELECT 1 FROM json_each(users.recovery_codes) WHERE value = ?)
		RETURNING recovery_codes`,
		code, toMillis(now), userID, code,
	).Scan(&remaining)
	if err != nil {
		return 0, mapNotFound(err)
	}
	codes, err := decodeCodes(remaining)
	if err != nil {
		return 0, err
	}
	return len(codes), nil
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		active, toMillis(now), userID)
	return requireOneRow(res, err)
}

func (r *usersRepo) ExpirePendingSetups(ctx context.Context, cutoff, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `UPDATE users SET
		two_factor_setup_pending = 0,
		pending_two_factor_secret = NULL,
		two_factor_setup_started_at = NULL,
		two_factor_revision = two_factor_revision + 1,
		updated_at = ?
		WHERE two_factor_setup_pending = 1 AND two_factor_setup_started_at < ?
		RETURNING id`,
		toMillis(now), toMillis(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}
