package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// MedicalRecord holds the structure for the medicalRecords collection in mongo
type MedicalRecord struct {
	ID      primitive.ObjectID   `json:"_id" bson:"_id"`
	Details MedicalRecordDetails `json:"medicalRecord" bson:"medicalRecord"`
}

// MedicalRecordDetails holds the structure for the inner medical record
// structure as defined in the medicalRecords collection in mongo
type MedicalRecordDetails struct {
	PatientID   string             `json:"patientID" bson:"patientID"`
	PatientName string             `json:"patientName" bson:"patientName"`
	Date        string             `json:"date" bson:"date"` // YYYY-MM-DD
	Complaint   string             `json:"complaint" bson:"complaint"`
	Diagnosis   string             `json:"diagnosis" bson:"diagnosis"`
	Treatment   string             `json:"treatment" bson:"treatment"`
	Notes       string             `json:"notes" bson:"notes"`
	Attachments []string           `json:"attachments" bson:"attachments"` // hosted upload URLs
	AccountID   string             `json:"accountID" bson:"accountID"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
