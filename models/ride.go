package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ride request lifecycle states
const (
	RideStatusOpen      = "open"
	RideStatusFull      = "full"
	RideStatusDeparted  = "departed"
	RideStatusCancelled = "cancelled"
)

// RideRequest holds the structure for the rideRequests collection in mongo
type RideRequest struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"_id,omitempty"`
	DriverID       string              `bson:"driverId" json:"driverId"`
	Origin         string              `bson:"origin" json:"origin"`
	Destination    string              `bson:"destination" json:"destination"`
	DepartureTime  primitive.DateTime  `bson:"departureTime" json:"departureTime"`
	SeatsAvailable int                 `bson:"seatsAvailable" json:"seatsAvailable"`
	Status         string              `bson:"status" json:"status"`
	ChatRoom       string              `bson:"chatRoom" json:"chatRoom"` // chat room id shared by driver and confirmed passengers
	ReminderSentAt *primitive.DateTime `bson:"reminderSentAt,omitempty" json:"reminderSentAt,omitempty"`
	CreatedAt      primitive.DateTime  `bson:"createdAt" json:"createdAt"`
}
