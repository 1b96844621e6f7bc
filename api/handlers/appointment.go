package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-api/api"
	"github.com/clinicdesk/clinic-api/api/handlers/schedule"
	"github.com/clinicdesk/clinic-api/config"
	"github.com/clinicdesk/clinic-api/databases"
	"github.com/clinicdesk/clinic-api/models"
)

// Appointment exported for testing purposes
type Appointment struct {
	DB  databases.AppointmentDatabase
	PDB databases.PatientDatabase
	SDB databases.SettingsDatabase
}

// AppointmentHandler returns all appointments for the account, optionally
// filtered to a single day with ?date=YYYY-MM-DD
func (a Appointment) AppointmentHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v, err: %v", Limit|10, err))
	}
	limit64 := int64(Limit)
	page := getPage(0, r)
	skip64 := int64(page * Limit)

	filter := bson.M{"appointment.accountID": account.ID}
	if date := r.URL.Query().Get("date"); date != "" {
		filter["appointment.date"] = date
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := a.DB.Find(ctx, filter, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get appointments", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Appointment{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AppointmentsByPatientIDHandler returns all appointments for the given patient
func (a Appointment) AppointmentsByPatientIDHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	patientID := mux.Vars(r)["patient_id"]

	zap.S().Debugf("patient_id: '%v'", patientID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := a.DB.Find(ctx, bson.M{
		"appointment.accountID": account.ID,
		"appointment.patientID": patientID,
	})
	if err != nil {
		config.ErrorStatus("failed to get appointments by patient", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Appointment{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AvailableSlotsHandler returns the bookable start times for a given day:
// the slots generated from the account's working hours, minus the slots
// already taken by a non-cancelled appointment on that day
func (a Appointment) AvailableSlotsHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		config.ErrorStatus("invalid or missing date, expected YYYY-MM-DD", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	hours := models.DefaultSettingsDetails(account.ID).WorkingHours
	if settings, err := a.SDB.FindByAccount(ctx, account.ID); err == nil {
		hours = settings.Details.WorkingHours
	}

	slots, err := schedule.Slots(hours.Start, hours.End, hours.BreakStart, hours.BreakEnd, hours.SlotDuration)
	if err != nil {
		config.ErrorStatus("failed to generate slots from working hours", http.StatusInternalServerError, w, err)
		return
	}

	booked, err := a.DB.Find(ctx, bson.M{
		"appointment.accountID": account.ID,
		"appointment.date":      date,
		"appointment.status":    bson.M{"$ne": models.AppointmentStatusCancelled},
	})
	if err != nil {
		config.ErrorStatus("failed to get booked appointments", http.StatusInternalServerError, w, err)
		return
	}

	taken := make([]string, 0, len(booked))
	for _, appt := range booked {
		taken = append(taken, appt.Details.Time)
	}
	available := schedule.Filter(slots, taken)
	if available == nil {
		available = []string{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"date":  date,
		"slots": available,
	})
}

// AppointmentByIDHandler returns an appointment by ID
func (a Appointment) AppointmentByIDHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	appointmentID := mux.Vars(r)["appointment_id"]

	aID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := a.DB.FindOne(ctx, bson.M{"_id": aID, "appointment.accountID": account.ID})
	if err != nil {
		config.ErrorStatus("failed to get appointment by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateAppointmentHandler creates an appointment. The patient's display
// name is copied onto the appointment at creation time.
func (a Appointment) CreateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var appointment models.Appointment
	if err := json.NewDecoder(r.Body).Decode(&appointment.Details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	appointment.ID = primitive.NewObjectID()
	appointment.Details.AccountID = account.ID
	if appointment.Details.Status == "" {
		appointment.Details.Status = models.AppointmentStatusScheduled
	}

	// denormalize the patient name if the client did not supply one
	if appointment.Details.PatientName == "" && appointment.Details.PatientID != "" {
		if pID, err := primitive.ObjectIDFromHex(appointment.Details.PatientID); err == nil {
			if patient, err := a.PDB.FindOne(ctx, bson.M{"_id": pID, "patient.accountID": account.ID}); err == nil {
				appointment.Details.PatientName = patient.Details.Name
			}
		}
	}
	if appointment.Details.Duration == 0 {
		hours := models.DefaultSettingsDetails(account.ID).WorkingHours
		if settings, err := a.SDB.FindByAccount(ctx, account.ID); err == nil {
			hours = settings.Details.WorkingHours
		}
		appointment.Details.Duration = hours.SlotDuration
	}

	appointment.Details.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	appointment.Details.UpdatedAt = appointment.Details.CreatedAt

	_, err := a.DB.InsertOne(ctx, appointment)
	if err != nil {
		config.ErrorStatus("failed to create appointment", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Appointment created successfully",
		"id":      appointment.ID.Hex(),
	})
}

// UpdateAppointmentHandler updates an appointment's details
func (a Appointment) UpdateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	appointmentID := mux.Vars(r)["appointment_id"]

	aID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var updatedFields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updatedFields); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	update := bson.M{}
	for key, value := range updatedFields {
		if key == "accountID" {
			continue
		}
		update["appointment."+key] = value
	}
	update["appointment.updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = a.DB.UpdateOne(ctx, bson.M{"_id": aID, "appointment.accountID": account.ID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update appointment", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Appointment updated successfully",
	})
}

// DeleteAppointmentHandler deletes an appointment by ID
func (a Appointment) DeleteAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	appointmentID := mux.Vars(r)["appointment_id"]

	aID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = a.DB.DeleteOne(ctx, bson.M{"_id": aID, "appointment.accountID": account.ID})
	if err != nil {
		config.ErrorStatus("failed to delete appointment", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Appointment deleted successfully",
	})
}
