package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
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

// Patient exported for testing purposes
type Patient struct {
	DB databases.PatientDatabase
}

// requireAccount pulls the authenticated account out of the request
// context. Mutations without a session are a fatal precondition, not a
// recoverable state.
func requireAccount(w http.ResponseWriter, r *http.Request) (api.Account, bool) {
	account := api.AccountFromContext(r.Context())
	if account.ID == "" {
		config.ErrorStatus("user not authenticated", http.StatusUnauthorized, w, errors.New("no account in request context"))
		return api.Account{}, false
	}
	return account, true
}

// PatientHandler returns all patients for the account
func (p Patient) PatientHandler(w http.ResponseWriter, r *http.Request) {
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

	dbResp, err := p.DB.Find(ctx, bson.M{"patient.accountID": account.ID}, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get patients", http.StatusNotFound, w, err)
		return
	}
	// The frontend requires the data elements to exist, so an empty
	// result set is returned as an empty array rather than null
	if len(dbResp) == 0 {
		dbResp = []models.Patient{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// PatientsByNameSearchHandler returns a paginated list of patients whose
// name matches the given search terms
func (p Patient) PatientsByNameSearchHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	firstName := r.URL.Query().Get("first_name")
	lastName := r.URL.Query().Get("last_name")
	name := r.URL.Query().Get("name")
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v", Limit|10))
	}
	limit64 := int64(Limit)
	page := getPage(0, r)
	skip64 := int64(page * Limit)

	zap.S().Debugf("first_name: '%v', last_name: '%v', name: '%v'", firstName, lastName, name)

	var orConditions []bson.M
	if firstName != "" {
		orConditions = append(orConditions, bson.M{"patient.firstName": bson.M{"$regex": firstName, "$options": "i"}})
	}
	if lastName != "" {
		orConditions = append(orConditions, bson.M{"patient.lastName": bson.M{"$regex": lastName, "$options": "i"}})
	}
	if name != "" {
		orConditions = append(orConditions, bson.M{"patient.name": bson.M{"$regex": name, "$options": "i"}})
	}

	filter := bson.M{"patient.accountID": account.ID}
	if len(orConditions) > 0 {
		filter["$or"] = orConditions
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := p.DB.Find(ctx, filter, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get patient name search", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Patient{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// PatientByIDHandler returns a patient by ID
func (p Patient) PatientByIDHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	patientID := mux.Vars(r)["patient_id"]

	zap.S().Debugf("patient_id: %v", patientID)

	pID, err := primitive.ObjectIDFromHex(patientID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := p.DB.FindOne(ctx, bson.M{"_id": pID, "patient.accountID": account.ID})
	if err != nil {
		config.ErrorStatus("failed to get patient by ID", http.StatusNotFound, w, err)
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

// CreatePatientHandler creates a patient
func (p Patient) CreatePatientHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var patient models.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient.Details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	patient.ID = primitive.NewObjectID()
	patient.Details.AccountID = account.ID
	if patient.Details.Name == "" {
		patient.Details.Name = strings.TrimSpace(patient.Details.FirstName + " " + patient.Details.LastName)
	}
	patient.Details.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	patient.Details.UpdatedAt = patient.Details.CreatedAt

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	_, err := p.DB.InsertOne(ctx, patient)
	if err != nil {
		config.ErrorStatus("failed to create patient", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Patient created successfully",
		"id":      patient.ID.Hex(),
	})
}

// UpdatePatientHandler updates a patient's details
func (p Patient) UpdatePatientHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	patientID := mux.Vars(r)["patient_id"]

	pID, err := primitive.ObjectIDFromHex(patientID)
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
		// the account scope is never client-writable
		if key == "accountID" {
			continue
		}
		update["patient."+key] = value
	}
	update["patient.updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = p.DB.UpdateOne(ctx, bson.M{"_id": pID, "patient.accountID": account.ID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update patient", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Patient updated successfully",
	})
}

// DeletePatientHandler deletes a patient by ID. Appointments, records and
// bills referencing the patient are left in place with their denormalized
// name, matching how the clinic data model has always behaved.
func (p Patient) DeletePatientHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	patientID := mux.Vars(r)["patient_id"]

	pID, err := primitive.ObjectIDFromHex(patientID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = p.DB.DeleteOne(ctx, bson.M{"_id": pID, "patient.accountID": account.ID})
	if err != nil {
		config.ErrorStatus("failed to delete patient", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Patient deleted successfully",
	})
}

func getPage(Page int, r *http.Request) int {
	if r.URL.Query().Get("page") == "" {
		zap.S().Warnf("page not set, using default of %v", Page)
	} else {
		var err error
		Page, err = strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			zap.S().Errorf(fmt.Sprintf("error parsing page number: %v", err))
		}
		if Page < 0 {
			zap.S().Warnf(fmt.Sprintf("cannot process page number less than 1. Got: %v", Page))
			return 0
		}
	}
	return Page
}
