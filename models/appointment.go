package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Appointment statuses. There is no state machine here, the status is a
// plain label the clinic staff flips from the UI.
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

// Appointment holds the structure for the appointment collection in mongo
type Appointment struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details AppointmentDetails `json:"appointment" bson:"appointment"`
}

// AppointmentDetails holds the structure for the inner appointment structure
// as defined in the appointment collection in mongo.
//
// PatientName is a denormalized copy of the patient's display name taken at
// creation time. Deleting the patient does not cascade, so the name (and the
// patientID reference) can go stale.
type AppointmentDetails struct {
	PatientID    string             `json:"patientID" bson:"patientID"`
	PatientName  string             `json:"patientName" bson:"patientName"`
	Date         string             `json:"date" bson:"date"` // YYYY-MM-DD
	Time         string             `json:"time" bson:"time"` // HH:MM, one of the generated slots
	Duration     int                `json:"duration" bson:"duration"` // minutes
	Reason       string             `json:"reason" bson:"reason"`
	Status       string             `json:"status" bson:"status"`
	Notes        string             `json:"notes" bson:"notes"`
	ReminderSent bool               `json:"reminderSent" bson:"reminderSent"`
	AccountID    string             `json:"accountID" bson:"accountID"`
	CreatedAt    primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt    primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
