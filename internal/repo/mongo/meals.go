package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/smartmeals/smartmeals/internal/domain/meal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MealsRepo struct {
	coll *mongo.Collection
	obs  DBObserver
}

func NewMealsRepo(database *mongo.Database, obs DBObserver) *MealsRepo {
	return &MealsRepo{coll: database.Collection("meals"), obs: obs}
}

func (r *MealsRepo) Create(ctx context.Context, userID string, req meal.WriteRequest) (meal.Meal, error) {
	m := meal.New(userID, req, time.Now().UTC())

	err := observe(r.obs, "meals.insert", func() error {
		res, err := r.coll.InsertOne(ctx, m)

		if err != nil {
			return err
		}

		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			m.ID = id
		}

		return nil
	})

	if err != nil {
		return meal.Meal{}, err
	}

	return m, nil
}

// List returns the user's meals matching the filter, most recent first.
// _id breaks dateTime ties so the order is deterministic.
func (r *MealsRepo) List(ctx context.Context, userID string, filter meal.ListFilter) ([]meal.Meal, error) {
	query := bson.M{"userId": userID}

	if filter.Type != nil {
		query["type"] = *filter.Type
	}

	if filter.Date != nil {
		start, end, err := meal.DayWindow(*filter.Date, filter.Loc)

		if err != nil {
			return nil, err
		}

		query["dateTime"] = bson.M{"$gte": start, "$lt": end}
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "dateTime", Value: -1},
		{Key: "_id", Value: -1},
	})

	meals := make([]meal.Meal, 0)

	err := observe(r.obs, "meals.list", func() error {
		cursor, err := r.coll.Find(ctx, query, opts)

		if err != nil {
			return err
		}

		defer cursor.Close(ctx)

		return cursor.All(ctx, &meals)
	})

	if err != nil {
		return nil, err
	}

	return meals, nil
}

// GetByID scopes the lookup to the owner. A meal belonging to someone else
// is indistinguishable from a missing one.
func (r *MealsRepo) GetByID(ctx context.Context, userID, mealID string) (meal.Meal, error) {
	oid, err := primitive.ObjectIDFromHex(mealID)

	if err != nil {
		return meal.Meal{}, meal.ErrNotFound
	}

	var m meal.Meal

	err = observe(r.obs, "meals.get", func() error {
		return r.coll.FindOne(ctx, bson.M{"_id": oid, "userId": userID}).Decode(&m)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return meal.Meal{}, meal.ErrNotFound
		}

		return meal.Meal{}, err
	}

	return m, nil
}

func (r *MealsRepo) Update(ctx context.Context, userID, mealID string, req meal.WriteRequest) (meal.Meal, error) {
	oid, err := primitive.ObjectIDFromHex(mealID)

	if err != nil {
		return meal.Meal{}, meal.ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"name":        req.Name,
		"description": req.Description,
		"calories":    req.Calories,
		"dateTime":    req.DateTime.UTC(),
		"type":        req.Type,
		"updatedAt":   time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m meal.Meal

	err = observe(r.obs, "meals.update", func() error {
		return r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid, "userId": userID}, update, opts).Decode(&m)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return meal.Meal{}, meal.ErrNotFound
		}

		return meal.Meal{}, err
	}

	return m, nil
}

func (r *MealsRepo) Delete(ctx context.Context, userID, mealID string) error {
	oid, err := primitive.ObjectIDFromHex(mealID)

	if err != nil {
		return meal.ErrNotFound
	}

	var deleted int64

	err = observe(r.obs, "meals.delete", func() error {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID})

		if err != nil {
			return err
		}

		deleted = res.DeletedCount

		return nil
	})

	if err != nil {
		return err
	}

	if deleted == 0 {
		return meal.ErrNotFound
	}

	return nil
}

// ToggleFavorite flips isFavorite and returns the new value.
func (r *MealsRepo) ToggleFavorite(ctx context.Context, userID, mealID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(mealID)

	if err != nil {
		return false, meal.ErrNotFound
	}

	// single-document aggregation update so concurrent toggles still land
	// on a boolean flip rather than a lost write
	update := bson.A{bson.M{"$set": bson.M{
		"isFavorite": bson.M{"$not": "$isFavorite"},
		"updatedAt":  time.Now().UTC(),
	}}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m meal.Meal

	err = observe(r.obs, "meals.toggle_favorite", func() error {
		return r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid, "userId": userID}, update, opts).Decode(&m)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, meal.ErrNotFound
		}

		return false, err
	}

	return m.IsFavorite, nil
}
