package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ride passenger states
const (
	PassengerStatusPending   = "pending"
	PassengerStatusConfirmed = "confirmed"
	PassengerStatusCancelled = "cancelled"
)

// RidePassenger holds the structure for the ridePassengers collection in mongo
type RidePassenger struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	RideRequestID primitive.ObjectID `bson:"rideRequestId" json:"rideRequestId"`
	PassengerID   string             `bson:"passengerId" json:"passengerId"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     primitive.DateTime `bson:"createdAt" json:"createdAt"`
}
