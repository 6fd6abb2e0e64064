package mongo

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDoc is the persisted shape. Optional two-factor fields are omitted
// when empty and removed with $unset on update.
type userDoc struct {
	ID                      string     `bson:"_id"`
	Email                   string     `bson:"email"`
	Name                    string     `bson:"name,omitempty"`
	Avatar                  string     `bson:"avatar,omitempty"`
	Role                    string     `bson:"role"`
	Active                  bool       `bson:"active"`
	TwoFactorEnabled        bool       `bson:"twoFactorEnabled"`
	TwoFactorSecret         string     `bson:"twoFactorSecret,omitempty"`
	PendingTwoFactorSecret  string     `bson:"pendingTwoFactorSecret,omitempty"`
	TwoFactorSetupPending   bool       `bson:"twoFactorSetupPending,omitempty"`
	TwoFactorSetupStartedAt *time.Time `bson:"twoFactorSetupStartedAt,omitempty"`
	RecoveryCodes           []string   `bson:"recoveryCodes,omitempty"`
	TwoFactorLastStep       int64      `bson:"twoFactorLastStep,omitempty"`
	TwoFactorRevision       int64      `bson:"twoFactorRevision"`
	CreatedAt               time.Time  `bson:"createdAt"`
	UpdatedAt               time.Time  `bson:"updatedAt"`
}

func toUserDoc(u domain.User) userDoc {
	return userDoc{
		ID:                      u.ID,
		Email:                   strings.ToLower(u.Email),
		Name:                    u.Name,
		Avatar:                  u.Avatar,
		Role:                    string(u.Role),
		Active:                  u.Active,
		TwoFactorEnabled:        u.TwoFactor.Enabled,
		TwoFactorSecret:         u.TwoFactor.Secret,
		PendingTwoFactorSecret:  u.TwoFactor.PendingSecret,
		TwoFactorSetupPending:   u.TwoFactor.SetupPending,
		TwoFactorSetupStartedAt: u.TwoFactor.SetupStartedAt,
		RecoveryCodes:           u.TwoFactor.RecoveryCodes,
		TwoFactorLastStep:       u.TwoFactor.LastTOTPStep,
		TwoFactorRevision:       u.TwoFactor.Revision,
		CreatedAt:               u.CreatedAt.UTC(),
		UpdatedAt:               u.UpdatedAt.UTC(),
	}
}

func (d userDoc) toDomain() domain.User {
	var started *time.Time
	if d.TwoFactorSetupStartedAt != nil {
		t := d.TwoFactorSetupStartedAt.UTC()
		started = &t
	}
	var codes []string
	if len(d.RecoveryCodes) > 0 {
		codes = slices.Clone(d.RecoveryCodes)
	}
	return domain.User{
		ID:     d.ID,
		Email:  d.Email,
		Name:   d.Name,
		Avatar: d.Avatar,
		Role:   domain.Role(d.Role),
		Active: d.Active,
		TwoFactor: domain.TwoFactor{
			Enabled:        d.TwoFactorEnabled,
			Secret:         d.TwoFactorSecret,
			PendingSecret:  d.PendingTwoFactorSecret,
			SetupPending:   d.TwoFactorSetupPending,
			SetupStartedAt: started,
			RecoveryCodes:  codes,
			LastTOTPStep:   d.TwoFactorLastStep,
			Revision:       d.TwoFactorRevision,
		},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type usersRepo struct {
	c *mongo.Collection
}

func (r *usersRepo) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var doc userDoc
	if err := r.c.FindOne(ctx, filter).Decode(&doc); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id, "active": true})
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{
		"email":  strings.ToLower(strings.TrimSpace(email)),
		"active": true,
	})
}

func (r *usersRepo) GetUserByIDAny(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if err := u.TwoFactor.Validate(); err != nil {
		return err
	}
	_, err := r.c.InsertOne(ctx, toUserDoc(u))
	return mapConflict(err)
}

// twoFactorPatch builds the $set/$unset pair replacing the whole field group.
func twoFactorPatch(tf domain.TwoFactor, now time.Time) bson.M {
	set := bson.M{
		"twoFactorEnabled":  tf.Enabled,
		"twoFactorRevision": tf.Revision + 1,
		"updatedAt":         now.UTC(),
	}
	unset := bson.M{}

	if tf.Secret != "" {
		set["twoFactorSecret"] = tf.Secret
	} else {
		unset["twoFactorSecret"] = ""
	}
	if tf.PendingSecret != "" {
		set["pendingTwoFactorSecret"] = tf.PendingSecret
	} else {
		unset["pendingTwoFactorSecret"] = ""
	}
	if tf.SetupPending {
		set["twoFactorSetupPending"] = true
	} else {
		unset["twoFactorSetupPending"] = ""
	}
	if tf.SetupStartedAt != nil {
		set["twoFactorSetupStartedAt"] = tf.SetupStartedAt.UTC()
	} else {
		unset["twoFactorSetupStartedAt"] = ""
	}
	if len(tf.RecoveryCodes) > 0 {
		set["recoveryCodes"] = tf.RecoveryCodes
	} else {
		unset["recoveryCodes"] = ""
	}
	if tf.LastTOTPStep != 0 {
		set["twoFactorLastStep"] = tf.LastTOTPStep
	} else {
		unset["twoFactorLastStep"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func (r *usersRepo) UpdateTwoFactor(ctx context.Context, userID string, tf domain.TwoFactor, now time.Time) error {
	if err := tf.Validate(); err != nil {
		return err
	}
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": userID, "active": true, "twoFactorRevision": revisionMatch(tf.Revision)},
		twoFactorPatch(tf, now),
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.c.CountDocuments(ctx, bson.M{"_id": userID, "active": true})
	if err != nil {
		return err
	}
	if n > 0 {
		return store.ErrConflict
	}
	return store.ErrNotFound
}

// revisionMatch also matches documents written before the revision field
// existed when rev is zero.
func revisionMatch(rev int64) any {
	if rev == 0 {
		return bson.M{"$in": bson.A{int64(0), nil}}
	}
	return rev
}

func (r *usersRepo) ConsumeRecoveryCode(ctx context.Context, userID, code string, now time.Time) (int, error) {
	var doc struct {
		RecoveryCodes []string `bson:"recoveryCodes"`
	}
	err := r.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":              userID,
			"active":           true,
			"twoFactorEnabled": true,
			"recoveryCodes":    code,
		},
		bson.M{
			"$pull": bson.M{"recoveryCodes": code},
			"$inc":  bson.M{"twoFactorRevision": int64(1)},
			"$set":  bson.M{"updatedAt": now.UTC()},
		},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"recoveryCodes": 1}),
	).Decode(&doc)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return len(doc.RecoveryCodes), nil
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool, now time.Time) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"active": active, "updatedAt": now.UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ExpirePendingSetups finds stale setups and clears each one with a
// conditional update, so a setup confirmed in between is left alone.
func (r *usersRepo) ExpirePendingSetups(ctx context.Context, cutoff, now time.Time) ([]string, error) {
	filter := bson.M{
		"twoFactorSetupPending":   true,
		"twoFactorSetupStartedAt": bson.M{"$lt": cutoff.UTC()},
	}
	cur, err := r.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := []string{}
	for _, d := range docs {
		res, err := r.c.UpdateOne(ctx,
			bson.M{
				"_id":                     d.ID,
				"twoFactorSetupPending":   true,
				"twoFactorSetupStartedAt": bson.M{"$lt": cutoff.UTC()},
			},
			bson.M{
				"$set": bson.M{"updatedAt": now.UTC()},
				"$inc": bson.M{"twoFactorRevision": int64(1)},
				"$unset": bson.M{
					"twoFactorSetupPending":   "",
					"pendingTwoFactorSecret":  "",
					"twoFactorSetupStartedAt": "",
				},
			},
		)
		if err != nil {
			return ids, err
		}
		if res.ModifiedCount > 0 {
			ids = append(ids, d.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
