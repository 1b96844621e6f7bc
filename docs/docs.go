// Package docs Clinic API.
//
// Documentation of the Clinic API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - bearer
//
//    SecurityDefinitions:
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/clinicdesk/clinic-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the health of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route GET /api/v1/patient/{patient_id} patients patientByID
// Gets a single patient by ID.
// responses:
//   200: patientByIDResponse

// Shows a single patient by the given {ID}
// swagger:response patientByIDResponse
type patientByIDResponseWrapper struct {
	// in:body
	Body models.Patient
}

// swagger:route GET /api/v1/appointment/{appointment_id} appointments appointmentByID
// Gets a single appointment by ID.
// responses:
//   200: appointmentByIDResponse

// Shows a single appointment by the given {ID}
// swagger:response appointmentByIDResponse
type appointmentByIDResponseWrapper struct {
	// in:body
	Body models.Appointment
}

// swagger:route GET /api/v1/bill/{bill_id} bills billByID
// Gets a single bill by ID.
// responses:
//   200: billByIDResponse

// Shows a single bill by the given {ID}
// swagger:response billByIDResponse
type billByIDResponseWrapper struct {
	// in:body
	Body models.Bill
}
