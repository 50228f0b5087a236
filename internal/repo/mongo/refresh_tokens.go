package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRow is one issued refresh token, keyed by its JTI. Only the
// HMAC hash of the raw token is stored.
type RefreshTokenRow struct {
	ID         string     `bson:"_id"`
	UserID     string     `bson:"userId"`
	TokenHash  string     `bson:"tokenHash"`
	ExpiresAt  time.Time  `bson:"expiresAt"`
	CreatedAt  time.Time  `bson:"createdAt"`
	RevokedAt  *time.Time `bson:"revokedAt,omitempty"`
	ReplacedBy *string    `bson:"replacedBy,omitempty"`
}

type RefreshTokensRepo struct {
	coll *mongo.Collection
	obs  DBObserver
}

func NewRefreshTokensRepo(database *mongo.Database, obs DBObserver) *RefreshTokensRepo {
	return &RefreshTokensRepo{coll: database.Collection("refresh_tokens"), obs: obs}
}

func (r *RefreshTokensRepo) Create(ctx context.Context, row RefreshTokenRow) error {
	return observe(r.obs, "sessions.insert", func() error {
		_, err := r.coll.InsertOne(ctx, row)
		return err
	})
}

func (r *RefreshTokensRepo) Get(ctx context.Context, id string) (RefreshTokenRow, error) {
	var row RefreshTokenRow

	err := observe(r.obs, "sessions.get", func() error {
		return r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&row)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return RefreshTokenRow{}, ErrRefreshTokenNotFound
		}

		return RefreshTokenRow{}, err
	}

	return row, nil
}

// RevokeIfActive marks the token revoked, but only if it is still unrevoked.
// The conditional update is the linearization point for rotation: two
// concurrent refreshes with the same token race here and exactly one wins.
func (r *RefreshTokensRepo) RevokeIfActive(ctx context.Context, id string, replacedBy *string) error {
	now := time.Now().UTC()

	set := bson.M{"revokedAt": now}

	if replacedBy != nil {
		set["replacedBy"] = *replacedBy
	}

	var matched int64

	err := observe(r.obs, "sessions.revoke", func() error {
		res, err := r.coll.UpdateOne(
			ctx,
			bson.M{"_id": id, "revokedAt": bson.M{"$exists": false}},
			bson.M{"$set": set},
		)

		if err != nil {
			return err
		}

		matched = res.MatchedCount

		return nil
	})

	if err != nil {
		return err
	}

	if matched == 0 {
		return ErrRefreshTokenNotFound
	}

	return nil
}

func (r *RefreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return observe(r.obs, "sessions.revoke_all", func() error {
		_, err := r.coll.UpdateMany(
			ctx,
			bson.M{"userId": userID, "revokedAt": bson.M{"$exists": false}},
			bson.M{"$set": bson.M{"revokedAt": time.Now().UTC()}},
		)

		return err
	})
}
