package databases

// go generate: mockery --name BillDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicdesk/clinic-api/models"
)

const billName = "bills"

// BillDatabase contains the methods to use with the bill database
type BillDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Bill, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Bill, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) error
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) error
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
}

type billDatabase struct {
	db DatabaseHelper
}

// NewBillDatabase initializes a new instance of bill database with the provided db connection
func NewBillDatabase(db DatabaseHelper) BillDatabase {
	return &billDatabase{
		db: db,
	}
}

func (b *billDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Bill, error) {
	bill := &models.Bill{}
	err := b.db.Collection(billName).FindOne(ctx, filter, opts...).Decode(&bill)
	if err != nil {
		return nil, err
	}
	return bill, nil
}

func (b *billDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Bill, error) {
	var bills []models.Bill
	cur, err := b.db.Collection(billName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&bills)
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (b *billDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := b.db.Collection(billName).InsertOne(ctx, document, opts...)
	return res, err
}

func (b *billDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	return b.db.Collection(billName).UpdateOne(ctx, filter, update, opts...)
}

func (b *billDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return b.db.Collection(billName).DeleteOne(ctx, filter, opts...)
}

func (b *billDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return b.db.Collection(billName).CountDocuments(ctx, filter, opts...)
}
