package databases

// go generate: mockery --name RideDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ridepool/ridepool-api/models"
)

const rideCollectionName = "rideRequests"

// RideDatabase contains the methods to use with the ride request database
type RideDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.RideRequest, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.RideRequest, error)
	InsertOne(ctx context.Context, ride models.RideRequest) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error)
}

type rideDatabase struct {
	db DatabaseHelper
}

// NewRideDatabase initializes a new instance of ride database with the provided db connection
func NewRideDatabase(db DatabaseHelper) RideDatabase {
	return &rideDatabase{
		db: db,
	}
}

func (r *rideDatabase) FindOne(ctx context.Context, filter interface{}) (*models.RideRequest, error) {
	ride := &models.RideRequest{}
	err := r.db.Collection(rideCollectionName).FindOne(ctx, filter).Decode(ride)
	if err != nil {
		return nil, err
	}
	return ride, nil
}

func (r *rideDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.RideRequest, error) {
	cursor, err := r.db.Collection(rideCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var rides []models.RideRequest
	if err := cursor.All(ctx, &rides); err != nil {
		return nil, err
	}
	return rides, nil
}

func (r *rideDatabase) InsertOne(ctx context.Context, ride models.RideRequest) (interface{}, error) {
	return r.db.Collection(rideCollectionName).InsertOne(ctx, ride)
}

func (r *rideDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error) {
	return r.db.Collection(rideCollectionName).UpdateOne(ctx, filter, update)
}

func (r *rideDatabase) UpdateMany(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error) {
	return r.db.Collection(rideCollectionName).UpdateMany(ctx, filter, update)
}
