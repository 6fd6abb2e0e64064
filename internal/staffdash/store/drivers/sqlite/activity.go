package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
)

type activityRepo struct {
	db *sql.DB
}

func (r *activityRepo) AppendActivity(ctx context.Context, e domain.ActivityLogEntry) error {
	var details sql.NullString
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO activity_log
		(id, user_id, activity_type, timestamp, ip_address, user_agent, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.ActivityType, toMillis(e.Timestamp),
		mapStringNull(e.IPAddress), mapStringNull(e.UserAgent), details,
	)
	return mapConflict(err)
}

func (r *activityRepo) ListActivityByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, activity_type, timestamp, ip_address, user_agent, details
		FROM activity_log
		WHERE user_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ActivityLogEntry{}
	for rows.Next() {
		var (
			e             domain.ActivityLogEntry
			ts            int64
			ip, ua, extra sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.ActivityType, &ts, &ip, &ua, &extra); err != nil {
			return nil, err
		}
		e.Timestamp = fromMillis(ts)
		e.IPAddress = ip.String
		e.UserAgent = ua.String
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &e.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
