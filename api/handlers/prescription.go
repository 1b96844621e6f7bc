package handlers

import (
	"context"
	"encoding/json"
	"errors"
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
	"github.com/clinicdesk/clinic-api/config"
	"github.com/clinicdesk/clinic-api/databases"
	"github.com/clinicdesk/clinic-api/models"
	templates "github.com/clinicdesk/clinic-api/templates/html"
)

// Prescription exported for testing purposes
type Prescription struct {
	DB  databases.PrescriptionDatabase
	PDB databases.PatientDatabase
	SDB databases.SettingsDatabase
}

// PrescriptionHandler returns all prescriptions for the account
func (p Prescription) PrescriptionHandler(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := p.DB.Find(ctx, bson.M{"prescription.accountID": account.ID}, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get prescriptions", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Prescription{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// PrescriptionsByPatientIDHandler returns all prescriptions for the given patient
func (p Prescription) PrescriptionsByPatientIDHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	patientID := mux.Vars(r)["patient_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := p.DB.Find(ctx, bson.M{
		"prescription.accountID": account.ID,
		"prescription.patientID": patientID,
	})
	if err != nil {
		config.ErrorStatus("failed to get prescriptions by patient", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Prescription{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// PrescriptionByIDHandler returns a prescription by ID
func (p Prescription) PrescriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	prescriptionID := mux.Vars(r)["prescription_id"]

	pID, err := primitive.ObjectIDFromHex(prescriptionID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := p.DB.FindOne(ctx, bson.M{"_id": pID, "prescription.accountID": account.ID})
	if err != nil {
		config.ErrorStatus("failed to get prescription by ID", http.StatusNotFound, w, err)
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

// CreatePrescriptionHandler creates a prescription
func (p Prescription) CreatePrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var prescription models.Prescription
	if err := json.NewDecoder(r.Body).Decode(&prescription.Details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	prescription.ID = primitive.NewObjectID()
	prescription.Details.AccountID = account.ID
	if prescription.Details.Date == "" {
		prescription.Details.Date = time.Now().Format("2006-01-02")
	}
	if prescription.Details.PatientName == "" && prescription.Details.PatientID != "" {
		if pID, err := primitive.ObjectIDFromHex(prescription.Details.PatientID); err == nil {
			if patient, err := p.PDB.FindOne(ctx, bson.M{"_id": pID, "patient.accountID": account.ID}); err == nil {
				prescription.Details.PatientName = patient.Details.Name
			}
		}
	}
	prescription.Details.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	prescription.Details.UpdatedAt = prescription.Details.CreatedAt

	_, err := p.DB.InsertOne(ctx, prescription)
	if err != nil {
		config.ErrorStatus("failed to create prescription", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Prescription created successfully",
		"id":      prescription.ID.Hex(),
	})
}

// UpdatePrescriptionHandler updates a prescription's details
func (p Prescription) UpdatePrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	prescriptionID := mux.Vars(r)["prescription_id"]

	pID, err := primitive.ObjectIDFromHex(prescriptionID)
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
		update["prescription."+key] = value
	}
	update["prescription.updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = p.DB.UpdateOne(ctx, bson.M{"_id": pID, "prescription.accountID": account.ID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update prescription", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Prescription updated successfully",
	})
}

// DeletePrescriptionHandler deletes a prescription by ID
func (p Prescription) DeletePrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	prescriptionID := mux.Vars(r)["prescription_id"]

	pID, err := primitive.ObjectIDFromHex(prescriptionID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = p.DB.DeleteOne(ctx, bson.M{"_id": pID, "prescription.accountID": account.ID})
	if err != nil {
		config.ErrorStatus("failed to delete prescription", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Prescription deleted successfully",
	})
}

// SendPrescriptionHandler emails the rendered prescription to the patient
func (p Prescription) SendPrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	prescriptionID := mux.Vars(r)["prescription_id"]

	pID, err := primitive.ObjectIDFromHex(prescriptionID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	prescription, settings, patient, err := p.loadForDocument(ctx, pID, account.ID)
	if err != nil {
		config.ErrorStatus("failed to get prescription by ID", http.StatusNotFound, w, err)
		return
	}
	if patient == nil || patient.Details.Email == "" {
		config.ErrorStatus("patient has no email address", http.StatusBadRequest, w, errors.New("missing patient email"))
		return
	}

	htmlContent := templates.RenderPrescriptionEmail(settings, *prescription)
	fromName, fromEmail := senderFor(settings)
	subject := fmt.Sprintf("Your prescription from %s", settings.ClinicName)
	plainText := fmt.Sprintf("Your prescription dated %s is attached. Please contact the clinic with any questions.", prescription.Details.Date)

	if err := sendEmail(fromName, fromEmail, prescription.Details.PatientName, patient.Details.Email, subject, htmlContent, plainText); err != nil {
		config.ErrorStatus("failed to send prescription email", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Prescription sent successfully",
	})
}

// PrescriptionDocumentHandler returns the rendered prescription document
func (p Prescription) PrescriptionDocumentHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	prescriptionID := mux.Vars(r)["prescription_id"]

	pID, err := primitive.ObjectIDFromHex(prescriptionID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	prescription, settings, _, err := p.loadForDocument(ctx, pID, account.ID)
	if err != nil {
		config.ErrorStatus("failed to get prescription by ID", http.StatusNotFound, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(templates.RenderPrescriptionEmail(settings, *prescription)))
}

// loadForDocument fetches the prescription plus the settings and patient
// needed to render it. Settings fall back to the account defaults and a
// missing patient is tolerated, only the prescription itself is required.
func (p Prescription) loadForDocument(ctx context.Context, id primitive.ObjectID, accountID string) (*models.Prescription, models.SettingsDetails, *models.Patient, error) {
	prescription, err := p.DB.FindOne(ctx, bson.M{"_id": id, "prescription.accountID": accountID})
	if err != nil {
		return nil, models.SettingsDetails{}, nil, err
	}

	settingsDetails := models.DefaultSettingsDetails(accountID)
	if settings, err := p.SDB.FindByAccount(ctx, accountID); err == nil {
		settingsDetails = settings.Details
	}

	var patient *models.Patient
	if prescription.Details.PatientID != "" {
		if pID, err := primitive.ObjectIDFromHex(prescription.Details.PatientID); err == nil {
			patient, _ = p.PDB.FindOne(ctx, bson.M{"_id": pID, "patient.accountID": accountID})
		}
	}

	return prescription, settingsDetails, patient, nil
}
