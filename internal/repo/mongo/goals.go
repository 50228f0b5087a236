package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/smartmeals/smartmeals/internal/domain/goal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type GoalsRepo struct {
	coll *mongo.Collection
	obs  DBObserver
}

func NewGoalsRepo(database *mongo.Database, obs DBObserver) *GoalsRepo {
	return &GoalsRepo{coll: database.Collection("goals"), obs: obs}
}

// Upsert writes the calorie target for (user, date), overwriting any
// previous value. The unique (userId, date) index keeps this to one record.
func (r *GoalsRepo) Upsert(ctx context.Context, userID, date string, calories int) (goal.DailyGoal, error) {
	filter := bson.M{"userId": userID, "date": date}

	update := bson.M{
		"$set": bson.M{
			"calories":  calories,
			"updatedAt": time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"userId": userID,
			"date":   date,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var g goal.DailyGoal

	err := observe(r.obs, "goals.upsert", func() error {
		return r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&g)
	})

	if err != nil {
		return goal.DailyGoal{}, err
	}

	return g, nil
}

// Get returns the stored goal, or the 2000 kcal fallback when nothing is
// stored. The fallback is never written back.
func (r *GoalsRepo) Get(ctx context.Context, userID, date string) (goal.DailyGoal, error) {
	var g goal.DailyGoal

	err := observe(r.obs, "goals.get", func() error {
		return r.coll.FindOne(ctx, bson.M{"userId": userID, "date": date}).Decode(&g)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return goal.Default(userID, date), nil
		}

		return goal.DailyGoal{}, err
	}

	return g, nil
}
