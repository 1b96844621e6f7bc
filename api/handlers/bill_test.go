package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clinicdesk/clinic-api/api/handlers"
	"github.com/clinicdesk/clinic-api/databases"
	mocksdb "github.com/clinicdesk/clinic-api/databases/mocks"
	"github.com/clinicdesk/clinic-api/models"
)

func TestBill_BillHandlerSuccess(t *testing.T) {
	req := authedRequest(t, "GET", "/api/v1/bills?status=unpaid", nil)

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	cursorHelper := &mocksdb.CursorHelper{}

	var filter interface{}
	cursorHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Bill)
		*arg = []models.Bill{{Details: models.BillDetails{InvoiceNumber: "INV-20260830-ABCDEF", Status: models.BillStatusUnpaid}}}
	})
	conn.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursorHelper, nil).Run(func(args mock.Arguments) {
		filter = args.Get(1)
	})
	db.On("Collection", "bills").Return(conn)

	b := handlers.Bill{DB: databases.NewBillDatabase(db)}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(b.BillHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	filterJSON, _ := json.Marshal(filter)
	assert.Contains(t, string(filterJSON), "bill.status")

	var bills []models.Bill
	_ = json.Unmarshal(rr.Body.Bytes(), &bills)
	assert.Equal(t, "INV-20260830-ABCDEF", bills[0].Details.InvoiceNumber)
}

func TestBill_CreateBillHandlerComputesTotals(t *testing.T) {
	patientID := primitive.NewObjectID()
	body := strings.NewReader(`{
		"patientID": "` + patientID.Hex() + `",
		"items": [
			{"description": "Consultation", "quantity": 1, "unitPrice": 5000},
			{"description": "Blood test", "quantity": 2, "unitPrice": 1500}
		],
		"tax": 800,
		"discount": 300
	}`)
	req := authedRequest(t, "POST", "/api/v1/bill", body)

	db := &mocksdb.DatabaseHelper{}

	patientConn := &mocksdb.CollectionHelper{}
	patientSRH := &mocksdb.SingleResultHelper{}
	patientSRH.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Patient)
		(*arg).ID = patientID
		(*arg).Details.Name = "Jane Doe"
		(*arg).Details.Email = "jane@example.com"
	})
	patientConn.On("FindOne", mock.Anything, mock.Anything).Return(patientSRH)
	db.On("Collection", "patients").Return(patientConn)

	conn := &mocksdb.CollectionHelper{}
	insertResult := &mocksdb.InsertOneResultHelper{}
	var inserted models.Bill
	conn.On("InsertOne", mock.Anything, mock.Anything).Return(insertResult, nil).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(models.Bill)
	})
	db.On("Collection", "bills").Return(conn)

	b := handlers.Bill{
		DB:  databases.NewBillDatabase(db),
		PDB: databases.NewPatientDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(b.CreateBillHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusCreated)
	}

	assert.Equal(t, int64(5000), inserted.Details.Items[0].Amount)
	assert.Equal(t, int64(3000), inserted.Details.Items[1].Amount)
	assert.Equal(t, int64(8000), inserted.Details.Subtotal)
	assert.Equal(t, int64(8500), inserted.Details.Total)
	assert.Equal(t, models.BillStatusUnpaid, inserted.Details.Status)
	assert.Equal(t, "Jane Doe", inserted.Details.PatientName)
	assert.Equal(t, "jane@example.com", inserted.Details.PatientEmail)
	assert.True(t, strings.HasPrefix(inserted.Details.InvoiceNumber, "INV-"))

	var resp map[string]interface{}
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, inserted.Details.InvoiceNumber, resp["invoiceNumber"])
}

func TestBill_BillByIDHandlerBadObjectID(t *testing.T) {
	req := authedRequest(t, "GET", "/api/v1/bill/1234", nil)
	req = mux.SetURLVars(req, map[string]string{"bill_id": "1234"})

	b := handlers.Bill{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(b.BillByIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to get objectID from Hex", Error: "the provided hex string is not a valid ObjectID"}}
	b2, _ := json.Marshal(expected)
	if rr.Body.String() != string(b2) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestBill_BillDocumentHandlerRendersInvoice(t *testing.T) {
	id := primitive.NewObjectID()
	req := authedRequest(t, "GET", "/api/v1/bill/"+id.Hex()+"/document", nil)
	req = mux.SetURLVars(req, map[string]string{"bill_id": id.Hex()})

	db := &mocksdb.DatabaseHelper{}
	settingsNotFoundDB(db)

	conn := &mocksdb.CollectionHelper{}
	srh := &mocksdb.SingleResultHelper{}
	srh.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Bill)
		(*arg).ID = id
		(*arg).Details = models.BillDetails{
			InvoiceNumber: "INV-20260830-ABCDEF",
			PatientName:   "Jane Doe",
			Date:          "2026-08-30",
			Items:         []models.BillItem{{Description: "Consultation", Quantity: 1, UnitPrice: 5000, Amount: 5000}},
			Subtotal:      5000,
			Total:         5000,
			Status:        models.BillStatusUnpaid,
			AccountID:     "account-1",
		}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(srh)
	db.On("Collection", "bills").Return(conn)

	b := handlers.Bill{
		DB:  databases.NewBillDatabase(db),
		SDB: databases.NewSettingsDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(b.BillDocumentHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "INV-20260830-ABCDEF")
	assert.Contains(t, rr.Body.String(), "Consultation")
}

func TestBill_CreateCheckoutSessionHandlerAlreadyPaid(t *testing.T) {
	id := primitive.NewObjectID()
	req := authedRequest(t, "POST", "/api/v1/bill/"+id.Hex()+"/checkout", nil)
	req = mux.SetURLVars(req, map[string]string{"bill_id": id.Hex()})

	db := &mocksdb.DatabaseHelper{}
	settingsNotFoundDB(db)

	conn := &mocksdb.CollectionHelper{}
	srh := &mocksdb.SingleResultHelper{}
	srh.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Bill)
		(*arg).ID = id
		(*arg).Details = models.BillDetails{Status: models.BillStatusPaid, Total: 5000, AccountID: "account-1"}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(srh)
	db.On("Collection", "bills").Return(conn)

	b := handlers.Bill{
		DB:  databases.NewBillDatabase(db),
		SDB: databases.NewSettingsDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(b.CreateCheckoutSessionHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "bill is already paid", Error: "bill already paid"}}
	b2, _ := json.Marshal(expected)
	if rr.Body.String() != string(b2) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestBill_CreateCheckoutSessionHandlerZeroTotal(t *testing.T) {
	id := primitive.NewObjectID()
	req := authedRequest(t, "POST", "/api/v1/bill/"+id.Hex()+"/checkout", nil)
	req = mux.SetURLVars(req, map[string]string{"bill_id": id.Hex()})

	db := &mocksdb.DatabaseHelper{}
	settingsNotFoundDB(db)

	conn := &mocksdb.CollectionHelper{}
	srh := &mocksdb.SingleResultHelper{}
	srh.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Bill)
		(*arg).ID = id
		(*arg).Details = models.BillDetails{Status: models.BillStatusUnpaid, Total: 0, AccountID: "account-1"}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(srh)
	db.On("Collection", "bills").Return(conn)

	b := handlers.Bill{
		DB:  databases.NewBillDatabase(db),
		SDB: databases.NewSettingsDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(b.CreateCheckoutSessionHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
}

func TestBill_CheckoutSuccessHandlerMarksPaid(t *testing.T) {
	id := primitive.NewObjectID()
	req, err := http.NewRequest("GET", "/api/v1/bills/"+id.Hex()+"/checkout/success?session_id=cs_test_123", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"bill_id": id.Hex()})

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}

	var filter, update interface{}
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		filter = args.Get(1)
		update = args.Get(2)
	})
	db.On("Collection", "bills").Return(conn)

	b := handlers.Bill{
		DB: databases.NewBillDatabase(db),
		GetCheckoutSession: func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return &stripe.CheckoutSession{ID: id, PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid}, nil
		},
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(b.CheckoutSuccessHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	// the update must be keyed on the session recorded at checkout time
	filterJSON, _ := json.Marshal(filter)
	assert.Contains(t, string(filterJSON), "bill.paymentRef")
	assert.Contains(t, string(filterJSON), "cs_test_123")
	updateJSON, _ := json.Marshal(update)
	assert.Contains(t, string(updateJSON), models.BillStatusPaid)
}

func TestBill_CheckoutSuccessHandlerMissingSessionID(t *testing.T) {
	id := primitive.NewObjectID()
	req, err := http.NewRequest("GET", "/api/v1/bills/"+id.Hex()+"/checkout/success", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"bill_id": id.Hex()})

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	db.On("Collection", "bills").Return(conn)

	b := handlers.Bill{DB: databases.NewBillDatabase(db)}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(b.CheckoutSuccessHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "missing checkout session", Error: "session_id query parameter is required"}}
	b2, _ := json.Marshal(expected)
	if rr.Body.String() != string(b2) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}

	conn.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestBill_CheckoutSuccessHandlerUnpaidSession(t *testing.T) {
	id := primitive.NewObjectID()
	req, err := http.NewRequest("GET", "/api/v1/bills/"+id.Hex()+"/checkout/success?session_id=cs_test_123", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"bill_id": id.Hex()})

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	db.On("Collection", "bills").Return(conn)

	b := handlers.Bill{
		DB: databases.NewBillDatabase(db),
		GetCheckoutSession: func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return &stripe.CheckoutSession{ID: id, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid}, nil
		},
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(b.CheckoutSuccessHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	// an abandoned or forged redirect never touches the bill
	conn.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestBill_UpdateBillHandlerFailed(t *testing.T) {
	id := primitive.NewObjectID()
	body := strings.NewReader(`{"status": "void"}`)
	req := authedRequest(t, "PUT", "/api/v1/bill/"+id.Hex(), body)
	req = mux.SetURLVars(req, map[string]string{"bill_id": id.Hex()})

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}

	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("mocked-error"))
	db.On("Collection", "bills").Return(conn)

	b := handlers.Bill{DB: databases.NewBillDatabase(db)}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(b.UpdateBillHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusInternalServerError {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusInternalServerError)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to update bill", Error: "mocked-error"}}
	b2, _ := json.Marshal(expected)
	if rr.Body.String() != string(b2) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}
