package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clinicdesk/clinic-api/api"
	"github.com/clinicdesk/clinic-api/config"
	"github.com/clinicdesk/clinic-api/databases"
	"github.com/clinicdesk/clinic-api/models"
	templates "github.com/clinicdesk/clinic-api/templates/html"
)

// Settings exported for testing purposes
type Settings struct {
	DB databases.SettingsDatabase
}

// SettingsHandler returns the account's settings, falling back to the
// defaults when none have been saved yet.
func (s Settings) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	details := models.DefaultSettingsDetails(account.ID)
	if dbResp, err := s.DB.FindByAccount(ctx, account.ID); err == nil {
		details = dbResp.Details
	}

	b, err := json.Marshal(details)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UpdateSettingsHandler replaces the account's settings document
func (s Settings) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var details models.SettingsDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	if details.CreatedAt == 0 {
		details.CreatedAt = now
	}
	details.UpdatedAt = now

	if err := s.DB.Upsert(ctx, account.ID, details); err != nil {
		config.ErrorStatus("failed to update settings", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Settings updated successfully",
	})
}

// TestEmailHandler sends a test email so the clinic can verify its
// sender configuration before invoices or reminders go out.
func (s Settings) TestEmailHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if body.Email == "" {
		config.ErrorStatus("email address is required", http.StatusBadRequest, w, errors.New("missing email"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	details := models.DefaultSettingsDetails(account.ID)
	if dbResp, err := s.DB.FindByAccount(ctx, account.ID); err == nil {
		details = dbResp.Details
	}

	fromName, fromEmail := senderFor(details)
	subject := fmt.Sprintf("Test email from %s", details.ClinicName)
	htmlContent := templates.RenderGenericEmail(details.ClinicName, subject,
		"This is a test email.\nIf you received it, your email settings are working.")

	if err := sendEmail(fromName, fromEmail, body.Email, body.Email, subject, htmlContent,
		"This is a test email. If you received it, your email settings are working."); err != nil {
		config.ErrorStatus("failed to send test email", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Test email sent successfully",
	})
}
