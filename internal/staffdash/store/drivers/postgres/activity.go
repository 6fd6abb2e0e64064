package postgres

import (
	"context"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type activityRepo struct {
	pool *pgxpool.Pool
}

func (r *activityRepo) AppendActivity(ctx context.Context, e domain.ActivityLogEntry) error {
	var details map[string]string
	if len(e.Details) > 0 {
		details = e.Details
	}
	_, err := r.pool.Exec(ctx, `
		insert into activity_log (id, user_id, activity_type, timestamp, ip_address, user_agent, details)
		values ($1, $2, $3, $4, $5, $6, $7)
	`,
		e.ID, e.UserID, e.ActivityType, e.Timestamp.UTC(),
		nullIfEmpty(e.IPAddress), nullIfEmpty(e.UserAgent), details,
	)
	return mapPgErr(err)
}

func (r *activityRepo) ListActivityByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		select id, user_id, activity_type, timestamp,
			coalesce(ip_address, ''), coalesce(user_agent, ''), details
		from activity_log
		where user_id = $1
		order by timestamp desc, id desc
		limit $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ActivityLogEntry{}
	for rows.Next() {
		var e domain.ActivityLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ActivityType, &e.Timestamp, &e.IPAddress, &e.UserAgent, &e.Details); err != nil {
			return nil, err
		}
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
