package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-api/api"
	"github.com/clinicdesk/clinic-api/api/scheduler"
	"github.com/clinicdesk/clinic-api/config"
	"github.com/clinicdesk/clinic-api/databases"
	"github.com/clinicdesk/clinic-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	api.SetupGoGuardian()

	r := mux.NewRouter()

	// each router owns its registry so New can be called more than once
	registry := prometheus.NewRegistry()
	metrics := api.NewMetrics(registry)
	r.Use(metrics.Middleware)
	r.Use(api.TimeoutMiddleware(30 * time.Second))

	p := Patient{DB: databases.NewPatientDatabase(a.dbHelper)}
	appt := Appointment{
		DB:  databases.NewAppointmentDatabase(a.dbHelper),
		PDB: databases.NewPatientDatabase(a.dbHelper),
		SDB: databases.NewSettingsDatabase(a.dbHelper),
	}
	record := MedicalRecord{
		DB:  databases.NewMedicalRecordDatabase(a.dbHelper),
		PDB: databases.NewPatientDatabase(a.dbHelper),
	}
	rx := Prescription{
		DB:  databases.NewPrescriptionDatabase(a.dbHelper),
		PDB: databases.NewPatientDatabase(a.dbHelper),
		SDB: databases.NewSettingsDatabase(a.dbHelper),
	}
	bill := Bill{
		DB:      databases.NewBillDatabase(a.dbHelper),
		PDB:     databases.NewPatientDatabase(a.dbHelper),
		SDB:     databases.NewSettingsDatabase(a.dbHelper),
		BaseURL: a.Config.BaseURL,
	}
	settings := Settings{DB: databases.NewSettingsDatabase(a.dbHelper)}
	cloudinaryHandler := CloudinaryHandler{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	// token exchange is the only unauthenticated POST, keep it rate limited
	tokenLimiter := api.NewRateLimiter(1, 5)
	apiCreate.Handle("/auth/token", api.RateLimitMiddleware(tokenLimiter)(http.HandlerFunc(api.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/patient", api.Middleware(http.HandlerFunc(p.CreatePatientHandler))).Methods("POST")
	apiCreate.Handle("/patient/{patient_id}", api.Middleware(http.HandlerFunc(p.PatientByIDHandler))).Methods("GET")
	apiCreate.Handle("/patient/{patient_id}", api.Middleware(http.HandlerFunc(p.UpdatePatientHandler))).Methods("PUT")
	apiCreate.Handle("/patient/{patient_id}", api.Middleware(http.HandlerFunc(p.DeletePatientHandler))).Methods("DELETE")
	apiCreate.Handle("/patients", api.Middleware(http.HandlerFunc(p.PatientHandler))).Methods("GET")
	apiCreate.Handle("/patients/search", api.Middleware(http.HandlerFunc(p.PatientsByNameSearchHandler))).Methods("GET")

	apiCreate.Handle("/appointment", api.Middleware(http.HandlerFunc(appt.CreateAppointmentHandler))).Methods("POST")
	apiCreate.Handle("/appointment/{appointment_id}", api.Middleware(http.HandlerFunc(appt.AppointmentByIDHandler))).Methods("GET")
	apiCreate.Handle("/appointment/{appointment_id}", api.Middleware(http.HandlerFunc(appt.UpdateAppointmentHandler))).Methods("PUT")
	apiCreate.Handle("/appointment/{appointment_id}", api.Middleware(http.HandlerFunc(appt.DeleteAppointmentHandler))).Methods("DELETE")
	apiCreate.Handle("/appointments", api.Middleware(http.HandlerFunc(appt.AppointmentHandler))).Methods("GET")
	apiCreate.Handle("/appointments/slots", api.Middleware(http.HandlerFunc(appt.AvailableSlotsHandler))).Methods("GET")
	apiCreate.Handle("/appointments/patient/{patient_id}", api.Middleware(http.HandlerFunc(appt.AppointmentsByPatientIDHandler))).Methods("GET")

	apiCreate.Handle("/medical-record", api.Middleware(http.HandlerFunc(record.CreateMedicalRecordHandler))).Methods("POST")
	apiCreate.Handle("/medical-record/{record_id}", api.Middleware(http.HandlerFunc(record.MedicalRecordByIDHandler))).Methods("GET")
	apiCreate.Handle("/medical-record/{record_id}", api.Middleware(http.HandlerFunc(record.UpdateMedicalRecordHandler))).Methods("PUT")
	apiCreate.Handle("/medical-record/{record_id}", api.Middleware(http.HandlerFunc(record.DeleteMedicalRecordHandler))).Methods("DELETE")
	apiCreate.Handle("/medical-records", api.Middleware(http.HandlerFunc(record.MedicalRecordHandler))).Methods("GET")
	apiCreate.Handle("/medical-records/patient/{patient_id}", api.Middleware(http.HandlerFunc(record.MedicalRecordsByPatientIDHandler))).Methods("GET")

	apiCreate.Handle("/prescription", api.Middleware(http.HandlerFunc(rx.CreatePrescriptionHandler))).Methods("POST")
	apiCreate.Handle("/prescription/{prescription_id}", api.Middleware(http.HandlerFunc(rx.PrescriptionByIDHandler))).Methods("GET")
	apiCreate.Handle("/prescription/{prescription_id}", api.Middleware(http.HandlerFunc(rx.UpdatePrescriptionHandler))).Methods("PUT")
	apiCreate.Handle("/prescription/{prescription_id}", api.Middleware(http.HandlerFunc(rx.DeletePrescriptionHandler))).Methods("DELETE")
	apiCreate.Handle("/prescription/{prescription_id}/send", api.Middleware(http.HandlerFunc(rx.SendPrescriptionHandler))).Methods("POST")
	apiCreate.Handle("/prescription/{prescription_id}/document", api.Middleware(http.HandlerFunc(rx.PrescriptionDocumentHandler))).Methods("GET")
	apiCreate.Handle("/prescriptions", api.Middleware(http.HandlerFunc(rx.PrescriptionHandler))).Methods("GET")
	apiCreate.Handle("/prescriptions/patient/{patient_id}", api.Middleware(http.HandlerFunc(rx.PrescriptionsByPatientIDHandler))).Methods("GET")

	apiCreate.Handle("/bill", api.Middleware(http.HandlerFunc(bill.CreateBillHandler))).Methods("POST")
	apiCreate.Handle("/bill/{bill_id}", api.Middleware(http.HandlerFunc(bill.BillByIDHandler))).Methods("GET")
	apiCreate.Handle("/bill/{bill_id}", api.Middleware(http.HandlerFunc(bill.UpdateBillHandler))).Methods("PUT")
	apiCreate.Handle("/bill/{bill_id}", api.Middleware(http.HandlerFunc(bill.DeleteBillHandler))).Methods("DELETE")
	apiCreate.Handle("/bill/{bill_id}/send", api.Middleware(http.HandlerFunc(bill.SendInvoiceHandler))).Methods("POST")
	apiCreate.Handle("/bill/{bill_id}/document", api.Middleware(http.HandlerFunc(bill.BillDocumentHandler))).Methods("GET")
	apiCreate.Handle("/bill/{bill_id}/checkout", api.Middleware(http.HandlerFunc(bill.CreateCheckoutSessionHandler))).Methods("POST")
	apiCreate.Handle("/bills", api.Middleware(http.HandlerFunc(bill.BillHandler))).Methods("GET")
	apiCreate.Handle("/bills/patient/{patient_id}", api.Middleware(http.HandlerFunc(bill.BillsByPatientIDHandler))).Methods("GET")

	// stripe redirects the patient's browser here, no bearer token available
	apiCreate.Handle("/bills/{bill_id}/checkout/success", http.HandlerFunc(bill.CheckoutSuccessHandler)).Methods("GET")
	apiCreate.Handle("/bills/{bill_id}/checkout/cancel", http.HandlerFunc(bill.CheckoutCancelHandler)).Methods("GET")

	apiCreate.Handle("/settings", api.Middleware(http.HandlerFunc(settings.SettingsHandler))).Methods("GET")
	apiCreate.Handle("/settings", api.Middleware(http.HandlerFunc(settings.UpdateSettingsHandler))).Methods("PUT")
	apiCreate.Handle("/settings/test-email", api.Middleware(http.HandlerFunc(settings.TestEmailHandler))).Methods("POST")

	apiCreate.Handle("/generate-signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")

	// swagger docs hosted at "/"
	r.PathPrefix("/").Handler(http.StripPrefix("/", http.FileServer(http.Dir("./docs/"))))
	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("clinic-api has connected to the database")

	// initialize stripe
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		return fmt.Errorf("stripe secret key is not set")
	}
	stripe.Key = stripeKey

	a.Scheduler = scheduler.NewScheduler(
		databases.NewAppointmentDatabase(a.dbHelper),
		databases.NewPatientDatabase(a.dbHelper),
		databases.NewSettingsDatabase(a.dbHelper),
		databases.NewSchedulerLockDatabase(a.dbHelper),
	)

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
