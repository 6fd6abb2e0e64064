package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type activityDoc struct {
	ID           string            `bson:"_id"`
	UserID       string            `bson:"userId"`
	ActivityType string            `bson:"activityType"`
	Timestamp    time.Time         `bson:"timestamp"`
	IPAddress    string            `bson:"ipAddress,omitempty"`
	UserAgent    string            `bson:"userAgent,omitempty"`
	Details      map[string]string `bson:"details,omitempty"`
}

type activityRepo struct {
	c *mongo.Collection
}

func (r *activityRepo) AppendActivity(ctx context.Context, e domain.ActivityLogEntry) error {
	_, err := r.c.InsertOne(ctx, activityDoc{
		ID:           e.ID,
		UserID:       e.UserID,
		ActivityType: e.ActivityType,
		Timestamp:    e.Timestamp.UTC(),
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Details:      e.Details,
	})
	return mapConflict(err)
}

func (r *activityRepo) ListActivityByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityLogEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.c.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []activityDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]domain.ActivityLogEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.ActivityLogEntry{
			ID:           d.ID,
			UserID:       d.UserID,
			ActivityType: d.ActivityType,
			Timestamp:    d.Timestamp.UTC(),
			IPAddress:    d.IPAddress,
			UserAgent:    d.UserAgent,
			Details:      d.Details,
		})
	}
	return out, nil
}
