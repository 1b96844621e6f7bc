package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Settings holds the structure for the settings collection in mongo.
// There is exactly one settings document per account.
type Settings struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details SettingsDetails    `json:"settings" bson:"settings"`
}

// SettingsDetails holds the structure for the inner settings structure as
// defined in the settings collection in mongo
type SettingsDetails struct {
	ClinicName   string             `json:"clinicName" bson:"clinicName"`
	Address      string             `json:"address" bson:"address"`
	Phone        string             `json:"phone" bson:"phone"`
	Email        string             `json:"email" bson:"email"`
	LogoURL      string             `json:"logoURL" bson:"logoURL"`
	Currency     string             `json:"currency" bson:"currency"`
	Locale       string             `json:"locale" bson:"locale"`
	WorkingHours WorkingHours       `json:"workingHours" bson:"workingHours"`
	Doctor       DoctorProfile      `json:"doctor" bson:"doctor"`
	EmailSender  EmailSender        `json:"emailSender" bson:"emailSender"`
	AccountID    string             `json:"accountID" bson:"accountID"`
	CreatedAt    primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt    primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// WorkingHours drives the appointment slot generator. All four times are
// HH:MM strings on a 24h clock, the duration is in minutes.
type WorkingHours struct {
	Start        string `json:"start" bson:"start"`
	End          string `json:"end" bson:"end"`
	BreakStart   string `json:"breakStart" bson:"breakStart"`
	BreakEnd     string `json:"breakEnd" bson:"breakEnd"`
	SlotDuration int    `json:"slotDuration" bson:"slotDuration"`
}

// DoctorProfile is the doctor's letterhead info used on prescriptions
// and invoices
type DoctorProfile struct {
	Name               string `json:"name" bson:"name"`
	Specialty          string `json:"specialty" bson:"specialty"`
	Qualification      string `json:"qualification" bson:"qualification"`
	RegistrationNumber string `json:"registrationNumber" bson:"registrationNumber"`
}

// EmailSender is the from-address used for outbound clinic email
type EmailSender struct {
	FromName  string `json:"fromName" bson:"fromName"`
	FromEmail string `json:"fromEmail" bson:"fromEmail"`
}

// DefaultSettingsDetails returns the hard-coded defaults applied to an
// account that has never saved settings
func DefaultSettingsDetails(accountID string) SettingsDetails {
	return SettingsDetails{
		ClinicName: "My Clinic",
		Currency:   "usd",
		Locale:     "en",
		WorkingHours: WorkingHours{
			Start:        "09:00",
			End:          "17:00",
			BreakStart:   "13:00",
			BreakEnd:     "14:00",
			SlotDuration: 30,
		},
		AccountID: accountID,
	}
}
