package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User holds the structure for the users collection in mongo
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Email           string             `bson:"email" json:"email"`
	Username        string             `bson:"username" json:"username"`
	Password        string             `bson:"password" json:"password,omitempty"`
	PhoneNumber     string             `bson:"phoneNumber" json:"phoneNumber"`
	Role            string             `bson:"role" json:"role"` // driver or passenger
	VehicleModel    string             `bson:"vehicleModel,omitempty" json:"vehicleModel,omitempty"`
	LicensePlate    string             `bson:"licensePlate,omitempty" json:"licensePlate,omitempty"`
	SeatingCapacity int                `bson:"seatingCapacity,omitempty" json:"seatingCapacity,omitempty"`
	Points          int                `bson:"points" json:"points"`
	CreatedAt       primitive.DateTime `bson:"createdAt" json:"createdAt"`
}
