package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
	"github.com/aussiebroadwan/staffdash/pkg/idx"
	"github.com/aussiebroadwan/staffdash/pkg/slogx"
)

// ActivitySink selects where activity entries go.
type ActivitySink string

const (
	SinkAll ActivitySink = "all" // store and structured log
	SinkDB  ActivitySink = "db"
	SinkLog ActivitySink = "log"
	SinkOff ActivitySink = "off"
)

// ParseActivitySink maps a config value to a sink, defaulting to SinkAll.
func ParseActivitySink(s string) (ActivitySink, error) {
	switch sink := ActivitySink(strings.ToLower(strings.TrimSpace(s))); sink {
	case "":
		return SinkAll, nil
	case SinkAll, SinkDB, SinkLog, SinkOff:
		return sink, nil
	default:
		return "", fmt.Errorf("unknown activity sink %q", s)
	}
}

// ActivityService records the append-only activity log. A nil
// *ActivityService accepts every call and does nothing.
type ActivityService struct {
	Store  store.Store
	Logger *slog.Logger
	Sink   ActivitySink
	Now    func() time.Time
}

func (s *ActivityService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Record stamps e with an id and timestamp when missing and writes it to the
// configured sinks. Only store failures are returned.
func (s *ActivityService) Record(ctx context.Context, e domain.ActivityLogEntry) error {
	if s == nil || s.Sink == SinkOff {
		return nil
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	if e.ID == "" {
		e.ID = idx.NewAt(e.Timestamp).String()
	}

	sink := s.Sink
	if sink == "" {
		sink = SinkAll
	}

	if sink == SinkAll || sink == SinkLog {
		s.log(ctx, e)
	}
	if sink == SinkAll || sink == SinkDB {
		if err := s.Store.Activity().AppendActivity(ctx, e); err != nil {
			return persistence("append activity", err)
		}
	}
	return nil
}

func (s *ActivityService) log(ctx context.Context, e domain.ActivityLogEntry) {
	logger := s.Logger
	if logger == nil {
		logger = slogx.FromContext(ctx)
	}
	attrs := []any{
		"audit", true,
		"activity_id", e.ID,
		"activity_type", e.ActivityType,
		"user_id", e.UserID,
		"ip", e.IPAddress,
	}
	if e.UserAgent != "" {
		attrs = append(attrs, "user_agent", e.UserAgent)
	}
	if len(e.Details) > 0 {
		attrs = append(attrs, "details", e.Details)
	}
	logger.InfoContext(ctx, "activity", attrs...)
}

// ListForUser returns the newest entries for userID. limit is clamped to
// [1, domain.ActivityListLimit]; zero or less means the maximum.
func (s *ActivityService) ListForUser(ctx context.Context, userID string, limit int) ([]domain.ActivityLogEntry, error) {
	if limit <= 0 || limit > domain.ActivityListLimit {
		limit = domain.ActivityListLimit
	}
	if s == nil || s.Store == nil {
		return []domain.ActivityLogEntry{}, nil
	}
	entries, err := s.Store.Activity().ListActivityByUser(ctx, userID, limit)
	if err != nil {
		return nil, persistence("list activity", err)
	}
	if entries == nil {
		entries = []domain.ActivityLogEntry{}
	}
	return entries, nil
}

func logActivityFailure(ctx context.Context, activityType, userID string, err error) {
	slogx.FromContext(ctx).Error("failed to record activity",
		"activity_type", activityType, "user_id", userID, "error", err)
}
