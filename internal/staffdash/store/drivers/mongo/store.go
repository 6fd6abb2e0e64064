// Package mongo stores users and activity as documents in MongoDB. Each
// mutation touches exactly one document, so no sessions or transactions are
// needed.
package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection    = "users"
	activityCollection = "activity_log"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and selects database. The connection is verified with a
// primary ping before returning.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Users() store.Users {
	return &usersRepo{c: s.db.Collection(usersCollection)}
}

func (s *Store) Activity() store.Activity {
	return &activityRepo{c: s.db.Collection(activityCollection)}
}

// ApplyMigrations creates the indexes the queries rely on. Index creation is
// idempotent so it runs on every start.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	users := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "twoFactorSetupPending", Value: 1},
				{Key: "twoFactorSetupStartedAt", Value: 1},
			},
			Options: options.Index().SetSparse(true),
		},
	}
	if _, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, users); err != nil {
		return err
	}

	activity := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "timestamp", Value: -1},
				{Key: "_id", Value: -1},
			},
		},
	}
	_, err := s.db.Collection(activityCollection).Indexes().CreateMany(ctx, activity)
	return err
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func mapConflict(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}
