package repository

import (
	"context"
	"errors"

	"github.com/digital-card-api/internal/database"
	"github.com/digital-card-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongoUserRepo is the MongoDB implementation of UserRepository
type mongoUserRepo struct {
	users *mongo.Collection
}

// NewMongoUserRepo creates a user repository backed by MongoDB
func NewMongoUserRepo(m *database.Mongo) UserRepository {
	return &mongoUserRepo{users: m.DB.Collection(database.CollectionUsers)}
}

func (r *mongoUserRepo) Create(ctx context.Context, user *models.User) error {
	_, err := r.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrUserExists
	}
	return err
}

func (r *mongoUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepo) Count(ctx context.Context) (int, error) {
	n, err := r.users.CountDocuments(ctx, bson.M{})
	return int(n), err
}
