package databases

// go generate: mockery --name UserDatabase

import (
	"context"

	"github.com/ridepool/ridepool-api/models"
)

const userCollectionName = "users"

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.User, error)
	InsertOne(ctx context.Context, user models.User) (interface{}, error)
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

type userDatabase struct {
	db DatabaseHelper
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

func (u *userDatabase) FindOne(ctx context.Context, filter interface{}) (*models.User, error) {
	user := &models.User{}
	err := u.db.Collection(userCollectionName).FindOne(ctx, filter).Decode(user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userDatabase) InsertOne(ctx context.Context, user models.User) (interface{}, error) {
	return u.db.Collection(userCollectionName).InsertOne(ctx, user)
}

func (u *userDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return u.db.Collection(userCollectionName).CountDocuments(ctx, filter)
}
