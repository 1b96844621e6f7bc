package databases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicdesk/clinic-api/databases"
	"github.com/clinicdesk/clinic-api/databases/mocks"
)

func TestSchedulerLockDatabase_TryAcquireLock(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	var filter interface{}
	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", context.Background(), mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		filter = args.Get(1)
	})

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	acquired, err := lockDba.TryAcquireLock(context.Background(), "reminder-job", "instance-1", 10*time.Minute)

	assert.NoError(t, err)
	assert.True(t, acquired)
	// the filter only matches a free or self-held lock
	assert.Contains(t, toJSON(t, filter), "reminder-job")
	assert.Contains(t, toJSON(t, filter), "instance-1")
}

func TestSchedulerLockDatabase_TryAcquireLockHeldElsewhere(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	// a concurrent holder surfaces as a duplicate key error on the upsert
	dupErr := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", context.Background(), mock.Anything, mock.Anything, mock.Anything).
		Return(dupErr)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	acquired, err := lockDba.TryAcquireLock(context.Background(), "reminder-job", "instance-2", 10*time.Minute)

	assert.NoError(t, err)
	assert.False(t, acquired)
}

func TestSchedulerLockDatabase_TryAcquireLockError(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", context.Background(), mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("mocked-error"))

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	acquired, err := lockDba.TryAcquireLock(context.Background(), "reminder-job", "instance-1", 10*time.Minute)

	assert.EqualError(t, err, "mocked-error")
	assert.False(t, acquired)
}

func TestSchedulerLockDatabase_ReleaseLock(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	var filter interface{}
	collectionHelper.(*mocks.CollectionHelper).
		On("DeleteOne", context.Background(), mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		filter = args.Get(1)
	})

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	err := lockDba.ReleaseLock(context.Background(), "reminder-job", "instance-1")

	assert.NoError(t, err)
	// only the owning instance may release the lock
	assert.Contains(t, toJSON(t, filter), "instance-1")
}
