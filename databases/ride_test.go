package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ridepool/ridepool-api/databases"
	"github.com/ridepool/ridepool-api/databases/mocks"
	"github.com/ridepool/ridepool-api/models"
)

func TestRideDatabase_FindOne(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperErr databases.SingleResultHelper
	var srHelperCorrect databases.SingleResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperErr = &mocks.SingleResultHelper{}
	srHelperCorrect = &mocks.SingleResultHelper{}

	srHelperErr.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(errors.New("mocked-error"))

	srHelperCorrect.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.RideRequest)
		arg.Origin = "campus"
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": true}).
		Return(srHelperErr)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": false}).
		Return(srHelperCorrect)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "rideRequests").Return(collectionHelper)

	rideDba := databases.NewRideDatabase(dbHelper)

	ride, err := rideDba.FindOne(context.Background(), bson.M{"error": true})

	assert.Empty(t, ride)
	assert.EqualError(t, err, "mocked-error")

	ride, err = rideDba.FindOne(context.Background(), bson.M{"error": false})

	assert.Equal(t, "campus", ride.Origin)
	assert.NoError(t, err)
}

func TestRideDatabase_Find(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var cursorHelper databases.CursorHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	cursorHelper = &mocks.CursorHelper{}

	cursorHelper.(*mocks.CursorHelper).
		On("All", context.Background(), mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.RideRequest)
		*arg = []models.RideRequest{{Origin: "campus", Destination: "station"}}
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.M{"status": "open"}).
		Return(cursorHelper, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "rideRequests").Return(collectionHelper)

	rideDba := databases.NewRideDatabase(dbHelper)

	rides, err := rideDba.Find(context.Background(), bson.M{"status": "open"})

	assert.NoError(t, err)
	assert.Len(t, rides, 1)
	assert.Equal(t, "station", rides[0].Destination)
}
