package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Bill statuses
const (
	BillStatusUnpaid = "unpaid"
	BillStatusPaid   = "paid"
	BillStatusVoid   = "void"
)

// Bill holds the structure for the bills collection in mongo
type Bill struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details BillDetails        `json:"bill" bson:"bill"`
}

// BillDetails holds the structure for the inner bill structure as defined
// in the bills collection in mongo. All money amounts are integer cents.
type BillDetails struct {
	InvoiceNumber string             `json:"invoiceNumber" bson:"invoiceNumber"`
	PatientID     string             `json:"patientID" bson:"patientID"`
	PatientName   string             `json:"patientName" bson:"patientName"`
	PatientEmail  string             `json:"patientEmail" bson:"patientEmail"`
	Date          string             `json:"date" bson:"date"` // YYYY-MM-DD
	Items         []BillItem         `json:"items" bson:"items"`
	Subtotal      int64              `json:"subtotal" bson:"subtotal"`
	Tax           int64              `json:"tax" bson:"tax"`
	Discount      int64              `json:"discount" bson:"discount"`
	Total         int64              `json:"total" bson:"total"`
	Status        string             `json:"status" bson:"status"`
	PaymentRef    string             `json:"paymentRef" bson:"paymentRef"` // checkout session id once one has been created
	AccountID     string             `json:"accountID" bson:"accountID"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt     primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// BillItem is a single embedded line item on a bill
type BillItem struct {
	Description string `json:"description" bson:"description"`
	Quantity    int64  `json:"quantity" bson:"quantity"`
	UnitPrice   int64  `json:"unitPrice" bson:"unitPrice"` // cents
	Amount      int64  `json:"amount" bson:"amount"`       // quantity * unitPrice, cents
}
