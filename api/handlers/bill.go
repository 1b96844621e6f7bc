package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
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

// Bill exported for testing purposes
type Bill struct {
	DB      databases.BillDatabase
	PDB     databases.PatientDatabase
	SDB     databases.SettingsDatabase
	BaseURL string

	// GetCheckoutSession fetches a checkout session from stripe.
	// Defaults to session.Get, overridable in tests.
	GetCheckoutSession func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// BillHandler returns all bills for the account
func (b Bill) BillHandler(w http.ResponseWriter, r *http.Request) {
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

	filter := bson.M{"bill.accountID": account.ID}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["bill.status"] = status
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := b.DB.Find(ctx, filter, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get bills", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Bill{}
	}
	respBytes, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(respBytes)
}

// BillsByPatientIDHandler returns all bills for the given patient
func (b Bill) BillsByPatientIDHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	patientID := mux.Vars(r)["patient_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := b.DB.Find(ctx, bson.M{
		"bill.accountID": account.ID,
		"bill.patientID": patientID,
	})
	if err != nil {
		config.ErrorStatus("failed to get bills by patient", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Bill{}
	}
	respBytes, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(respBytes)
}

// BillByIDHandler returns a bill by ID
func (b Bill) BillByIDHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	billID := mux.Vars(r)["bill_id"]

	bID, err := primitive.ObjectIDFromHex(billID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := b.DB.FindOne(ctx, bson.M{"_id": bID, "bill.accountID": account.ID})
	if err != nil {
		config.ErrorStatus("failed to get bill by ID", http.StatusNotFound, w, err)
		return
	}

	respBytes, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(respBytes)
}

// CreateBillHandler creates a bill. Item amounts and the bill totals are
// recomputed on the server so the stored invoice always adds up.
func (b Bill) CreateBillHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var bill models.Bill
	if err := json.NewDecoder(r.Body).Decode(&bill.Details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bill.ID = primitive.NewObjectID()
	bill.Details.AccountID = account.ID
	if bill.Details.Date == "" {
		bill.Details.Date = time.Now().Format("2006-01-02")
	}
	if bill.Details.InvoiceNumber == "" {
		bill.Details.InvoiceNumber = invoiceNumber()
	}
	if bill.Details.Status == "" {
		bill.Details.Status = models.BillStatusUnpaid
	}
	if bill.Details.PatientID != "" && (bill.Details.PatientName == "" || bill.Details.PatientEmail == "") {
		if pID, err := primitive.ObjectIDFromHex(bill.Details.PatientID); err == nil {
			if patient, err := b.PDB.FindOne(ctx, bson.M{"_id": pID, "patient.accountID": account.ID}); err == nil {
				if bill.Details.PatientName == "" {
					bill.Details.PatientName = patient.Details.Name
				}
				if bill.Details.PatientEmail == "" {
					bill.Details.PatientEmail = patient.Details.Email
				}
			}
		}
	}

	var subtotal int64
	for i := range bill.Details.Items {
		if bill.Details.Items[i].Quantity <= 0 {
			bill.Details.Items[i].Quantity = 1
		}
		bill.Details.Items[i].Amount = bill.Details.Items[i].Quantity * bill.Details.Items[i].UnitPrice
		subtotal += bill.Details.Items[i].Amount
	}
	bill.Details.Subtotal = subtotal
	bill.Details.Total = subtotal + bill.Details.Tax - bill.Details.Discount
	if bill.Details.Total < 0 {
		bill.Details.Total = 0
	}
	bill.Details.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	bill.Details.UpdatedAt = bill.Details.CreatedAt

	_, err := b.DB.InsertOne(ctx, bill)
	if err != nil {
		config.ErrorStatus("failed to create bill", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":       "Bill created successfully",
		"id":            bill.ID.Hex(),
		"invoiceNumber": bill.Details.InvoiceNumber,
	})
}

// UpdateBillHandler updates a bill's details
func (b Bill) UpdateBillHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	billID := mux.Vars(r)["bill_id"]

	bID, err := primitive.ObjectIDFromHex(billID)
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
		update["bill."+key] = value
	}
	update["bill.updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = b.DB.UpdateOne(ctx, bson.M{"_id": bID, "bill.accountID": account.ID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update bill", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Bill updated successfully",
	})
}

// DeleteBillHandler deletes a bill by ID
func (b Bill) DeleteBillHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	billID := mux.Vars(r)["bill_id"]

	bID, err := primitive.ObjectIDFromHex(billID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = b.DB.DeleteOne(ctx, bson.M{"_id": bID, "bill.accountID": account.ID})
	if err != nil {
		config.ErrorStatus("failed to delete bill", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Bill deleted successfully",
	})
}

// SendInvoiceHandler emails the rendered invoice to the patient
func (b Bill) SendInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	billID := mux.Vars(r)["bill_id"]

	bID, err := primitive.ObjectIDFromHex(billID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bill, settings, err := b.loadForDocument(ctx, bID, account.ID)
	if err != nil {
		config.ErrorStatus("failed to get bill by ID", http.StatusNotFound, w, err)
		return
	}
	if bill.Details.PatientEmail == "" {
		config.ErrorStatus("patient has no email address", http.StatusBadRequest, w, errors.New("missing patient email"))
		return
	}

	htmlContent := templates.RenderInvoiceEmail(settings, *bill)
	fromName, fromEmail := senderFor(settings)
	subject := fmt.Sprintf("Invoice %s from %s", bill.Details.InvoiceNumber, settings.ClinicName)
	plainText := fmt.Sprintf("Invoice %s for %s is ready. Amount due: %s.",
		bill.Details.InvoiceNumber, bill.Details.Date, templates.FormatAmount(bill.Details.Total, settings.Currency))

	if err := sendEmail(fromName, fromEmail, bill.Details.PatientName, bill.Details.PatientEmail, subject, htmlContent, plainText); err != nil {
		config.ErrorStatus("failed to send invoice email", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Invoice sent successfully",
	})
}

// BillDocumentHandler returns the rendered invoice document
func (b Bill) BillDocumentHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	billID := mux.Vars(r)["bill_id"]

	bID, err := primitive.ObjectIDFromHex(billID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bill, settings, err := b.loadForDocument(ctx, bID, account.ID)
	if err != nil {
		config.ErrorStatus("failed to get bill by ID", http.StatusNotFound, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(templates.RenderInvoiceEmail(settings, *bill)))
}

// CreateCheckoutSessionHandler creates a stripe checkout session for the
// outstanding bill total and records the session as the payment reference.
func (b Bill) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	billID := mux.Vars(r)["bill_id"]

	bID, err := primitive.ObjectIDFromHex(billID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bill, settings, err := b.loadForDocument(ctx, bID, account.ID)
	if err != nil {
		config.ErrorStatus("failed to get bill by ID", http.StatusNotFound, w, err)
		return
	}
	if bill.Details.Status == models.BillStatusPaid {
		config.ErrorStatus("bill is already paid", http.StatusBadRequest, w, errors.New("bill already paid"))
		return
	}
	if bill.Details.Total <= 0 {
		config.ErrorStatus("bill total must be greater than zero", http.StatusBadRequest, w, errors.New("nothing to charge"))
		return
	}

	currency := strings.ToLower(settings.Currency)
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Invoice %s - %s", bill.Details.InvoiceNumber, settings.ClinicName)),
					},
					UnitAmount: stripe.Int64(bill.Details.Total),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf("%s/api/v1/bills/%s/checkout/success?session_id={CHECKOUT_SESSION_ID}", b.BaseURL, billID)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/api/v1/bills/%s/checkout/cancel", b.BaseURL, billID)),
	}
	if bill.Details.PatientEmail != "" {
		params.CustomerEmail = stripe.String(bill.Details.PatientEmail)
	}

	s, err := session.New(params)
	if err != nil {
		config.ErrorStatus("failed to create checkout session", http.StatusInternalServerError, w, err)
		return
	}

	err = b.DB.UpdateOne(ctx, bson.M{"_id": bID, "bill.accountID": account.ID}, bson.M{"$set": bson.M{
		"bill.paymentRef": s.ID,
		"bill.updatedAt":  primitive.NewDateTimeFromTime(time.Now()),
	}})
	if err != nil {
		config.ErrorStatus("failed to update bill", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sessionId": s.ID,
		"url":       s.URL,
	})
}

// CheckoutSuccessHandler marks the bill paid after stripe redirects back.
// The redirect is unauthenticated, so the session is fetched from stripe
// and must be completed and match the payment reference stored on the
// bill before the status flips.
func (b Bill) CheckoutSuccessHandler(w http.ResponseWriter, r *http.Request) {
	billID := mux.Vars(r)["bill_id"]

	bID, err := primitive.ObjectIDFromHex(billID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		config.ErrorStatus("missing checkout session", http.StatusBadRequest, w, errors.New("session_id query parameter is required"))
		return
	}

	getSession := b.GetCheckoutSession
	if getSession == nil {
		getSession = session.Get
	}
	s, err := getSession(sessionID, nil)
	if err != nil {
		config.ErrorStatus("failed to retrieve checkout session", http.StatusBadGateway, w, err)
		return
	}
	if s.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		config.ErrorStatus("checkout session is not paid", http.StatusBadRequest, w, errors.New("payment not completed"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// the payment reference in the filter ties the update to the session
	// created for this bill, so a stray session id cannot flip another bill
	err = b.DB.UpdateOne(ctx, bson.M{"_id": bID, "bill.paymentRef": s.ID}, bson.M{"$set": bson.M{
		"bill.status":    models.BillStatusPaid,
		"bill.updatedAt": primitive.NewDateTimeFromTime(time.Now()),
	}})
	if err != nil {
		config.ErrorStatus("failed to update bill", http.StatusInternalServerError, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("<html><body><h3>Payment received. You can close this window.</h3></body></html>"))
}

// CheckoutCancelHandler acknowledges an abandoned checkout
func (b Bill) CheckoutCancelHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("<html><body><h3>Payment cancelled. You can close this window.</h3></body></html>"))
}

func (b Bill) loadForDocument(ctx context.Context, id primitive.ObjectID, accountID string) (*models.Bill, models.SettingsDetails, error) {
	bill, err := b.DB.FindOne(ctx, bson.M{"_id": id, "bill.accountID": accountID})
	if err != nil {
		return nil, models.SettingsDetails{}, err
	}

	settingsDetails := models.DefaultSettingsDetails(accountID)
	if settings, err := b.SDB.FindByAccount(ctx, accountID); err == nil {
		settingsDetails = settings.Details
	}

	return bill, settingsDetails, nil
}

// invoiceNumber builds a human readable invoice number, e.g. INV-20260830-1A2B3C
func invoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:6]
	return fmt.Sprintf("INV-%s-%s", time.Now().Format("20060102"), suffix)
}
