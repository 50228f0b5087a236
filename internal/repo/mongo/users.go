package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smartmeals/smartmeals/internal/domain/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already in use")
)

type UsersRepo struct {
	coll *mongo.Collection
	obs  DBObserver
}

func NewUsersRepo(database *mongo.Database, obs DBObserver) *UsersRepo {
	return &UsersRepo{coll: database.Collection("users"), obs: obs}
}

// Create persists a new user. Email uniqueness is enforced by the unique
// index, surfaced here as ErrEmailAlreadyUsed.
func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	u := user.User{
		Name:         name,
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	err := observe(r.obs, "users.insert", func() error {
		res, err := r.coll.InsertOne(ctx, u)

		if err != nil {
			return err
		}

		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			u.ID = id
		}

		return nil
	})

	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := observe(r.obs, "users.get_by_email", func() error {
		return r.coll.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&u)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
