package databases

// go generate: mockery --name RidePassengerDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ridepool/ridepool-api/models"
)

const ridePassengerCollectionName = "ridePassengers"

// RidePassengerDatabase contains the methods to use with the ride passenger database
type RidePassengerDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.RidePassenger, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.RidePassenger, error)
	InsertOne(ctx context.Context, passenger models.RidePassenger) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

type ridePassengerDatabase struct {
	db DatabaseHelper
}

// NewRidePassengerDatabase initializes a new instance of ride passenger database with the provided db connection
func NewRidePassengerDatabase(db DatabaseHelper) RidePassengerDatabase {
	return &ridePassengerDatabase{
		db: db,
	}
}

func (p *ridePassengerDatabase) FindOne(ctx context.Context, filter interface{}) (*models.RidePassenger, error) {
	passenger := &models.RidePassenger{}
	err := p.db.Collection(ridePassengerCollectionName).FindOne(ctx, filter).Decode(passenger)
	if err != nil {
		return nil, err
	}
	return passenger, nil
}

func (p *ridePassengerDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.RidePassenger, error) {
	cursor, err := p.db.Collection(ridePassengerCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var passengers []models.RidePassenger
	if err := cursor.All(ctx, &passengers); err != nil {
		return nil, err
	}
	return passengers, nil
}

func (p *ridePassengerDatabase) InsertOne(ctx context.Context, passenger models.RidePassenger) (interface{}, error) {
	return p.db.Collection(ridePassengerCollectionName).InsertOne(ctx, passenger)
}

func (p *ridePassengerDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error) {
	return p.db.Collection(ridePassengerCollectionName).UpdateOne(ctx, filter, update)
}

func (p *ridePassengerDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return p.db.Collection(ridePassengerCollectionName).CountDocuments(ctx, filter)
}
