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
	"github.com/clinicdesk/clinic-api/config"
	"github.com/clinicdesk/clinic-api/databases"
	"github.com/clinicdesk/clinic-api/models"
)

// MedicalRecord exported for testing purposes
type MedicalRecord struct {
	DB  databases.MedicalRecordDatabase
	PDB databases.PatientDatabase
}

// MedicalRecordHandler returns all medical records for the account
func (m MedicalRecord) MedicalRecordHandler(w http.ResponseWriter, r *http.Request) {
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

	dbResp, err := m.DB.Find(ctx, bson.M{"medicalRecord.accountID": account.ID}, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get medical records", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.MedicalRecord{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MedicalRecordsByPatientIDHandler returns all medical records for the given patient
func (m MedicalRecord) MedicalRecordsByPatientIDHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	patientID := mux.Vars(r)["patient_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := m.DB.Find(ctx, bson.M{
		"medicalRecord.accountID": account.ID,
		"medicalRecord.patientID": patientID,
	})
	if err != nil {
		config.ErrorStatus("failed to get medical records by patient", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.MedicalRecord{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MedicalRecordByIDHandler returns a medical record by ID
func (m MedicalRecord) MedicalRecordByIDHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	recordID := mux.Vars(r)["record_id"]

	rID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := m.DB.FindOne(ctx, bson.M{"_id": rID, "medicalRecord.accountID": account.ID})
	if err != nil {
		config.ErrorStatus("failed to get medical record by ID", http.StatusNotFound, w, err)
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

// CreateMedicalRecordHandler creates a medical record
func (m MedicalRecord) CreateMedicalRecordHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var record models.MedicalRecord
	if err := json.NewDecoder(r.Body).Decode(&record.Details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	record.ID = primitive.NewObjectID()
	record.Details.AccountID = account.ID
	if record.Details.PatientName == "" && record.Details.PatientID != "" {
		if pID, err := primitive.ObjectIDFromHex(record.Details.PatientID); err == nil {
			if patient, err := m.PDB.FindOne(ctx, bson.M{"_id": pID, "patient.accountID": account.ID}); err == nil {
				record.Details.PatientName = patient.Details.Name
			}
		}
	}
	record.Details.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	record.Details.UpdatedAt = record.Details.CreatedAt

	_, err := m.DB.InsertOne(ctx, record)
	if err != nil {
		config.ErrorStatus("failed to create medical record", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Medical record created successfully",
		"id":      record.ID.Hex(),
	})
}

// UpdateMedicalRecordHandler updates a medical record's details
func (m MedicalRecord) UpdateMedicalRecordHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	recordID := mux.Vars(r)["record_id"]

	rID, err := primitive.ObjectIDFromHex(recordID)
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
		update["medicalRecord."+key] = value
	}
	update["medicalRecord.updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = m.DB.UpdateOne(ctx, bson.M{"_id": rID, "medicalRecord.accountID": account.ID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update medical record", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Medical record updated successfully",
	})
}

// DeleteMedicalRecordHandler deletes a medical record by ID
func (m MedicalRecord) DeleteMedicalRecordHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	recordID := mux.Vars(r)["record_id"]

	rID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = m.DB.DeleteOne(ctx, bson.M{"_id": rID, "medicalRecord.accountID": account.ID})
	if err != nil {
		config.ErrorStatus("failed to delete medical record", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Medical record deleted successfully",
	})
}
