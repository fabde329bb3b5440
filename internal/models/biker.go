package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Biker is a delivery rider that orders can be assigned to.
type Biker struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Phone        string             `bson:"phone" json:"phone"`
	VehiclePlate string             `bson:"vehiclePlate,omitempty" json:"vehiclePlate,omitempty"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
