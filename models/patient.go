package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Patient holds the structure for the patient collection in mongo
type Patient struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details PatientDetails     `json:"patient" bson:"patient"`
}

// PatientDetails holds the structure for the inner patient structure as
// defined in the patient collection in mongo
type PatientDetails struct {
	FirstName   string             `json:"firstName" bson:"firstName"`
	LastName    string             `json:"lastName" bson:"lastName"`
	Name        string             `json:"name" bson:"name"` // denormalized display name, copied onto appointments and bills
	Email       string             `json:"email" bson:"email"`
	Phone       string             `json:"phone" bson:"phone"`
	Gender      string             `json:"gender" bson:"gender"`
	DateOfBirth string             `json:"dateOfBirth" bson:"dateOfBirth"`
	Address     string             `json:"address" bson:"address"`
	BloodGroup  string             `json:"bloodGroup" bson:"bloodGroup"`
	Allergies   []string           `json:"allergies" bson:"allergies"`
	Notes       string             `json:"notes" bson:"notes"`
	AccountID   string             `json:"accountID" bson:"accountID"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
