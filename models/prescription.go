package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Prescription holds the structure for the prescriptions collection in mongo
type Prescription struct {
	ID      primitive.ObjectID  `json:"_id" bson:"_id"`
	Details PrescriptionDetails `json:"prescription" bson:"prescription"`
}

// PrescriptionDetails holds the structure for the inner prescription
// structure as defined in the prescriptions collection in mongo
type PrescriptionDetails struct {
	PatientID   string             `json:"patientID" bson:"patientID"`
	PatientName string             `json:"patientName" bson:"patientName"`
	Date        string             `json:"date" bson:"date"` // YYYY-MM-DD
	Medicines   []Medicine         `json:"medicines" bson:"medicines"`
	Notes       string             `json:"notes" bson:"notes"`
	AccountID   string             `json:"accountID" bson:"accountID"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// Medicine is a single line on a prescription
type Medicine struct {
	Name         string `json:"name" bson:"name"`
	Dosage       string `json:"dosage" bson:"dosage"`
	Frequency    string `json:"frequency" bson:"frequency"`
	Duration     string `json:"duration" bson:"duration"`
	Instructions string `json:"instructions" bson:"instructions"`
}
