package databases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/clinicdesk/clinic-api/databases"
	"github.com/clinicdesk/clinic-api/databases/mocks"
	"github.com/clinicdesk/clinic-api/models"
)

func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestSettingsDatabase_FindByAccount(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperCorrect databases.SingleResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperCorrect = &mocks.SingleResultHelper{}

	srHelperCorrect.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Settings)
		(*arg).Details.ClinicName = "mocked-clinic"
	})

	var filter interface{}
	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), mock.Anything).
		Return(srHelperCorrect).Run(func(args mock.Arguments) {
		filter = args.Get(1)
	})

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "settings").Return(collectionHelper)

	settingsDba := databases.NewSettingsDatabase(dbHelper)

	settings, err := settingsDba.FindByAccount(context.Background(), "account-1")

	assert.NoError(t, err)
	assert.Equal(t, "mocked-clinic", settings.Details.ClinicName)
	assert.Contains(t, toJSON(t, filter), "settings.accountID")
}

func TestSettingsDatabase_Upsert(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	var update interface{}
	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", context.Background(), mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		update = args.Get(2)
	})

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "settings").Return(collectionHelper)

	settingsDba := databases.NewSettingsDatabase(dbHelper)

	err := settingsDba.Upsert(context.Background(), "account-1", models.SettingsDetails{ClinicName: "mocked-clinic"})

	assert.NoError(t, err)
	// the account ID on the stored details always comes from the caller,
	// never from the request body
	assert.Contains(t, toJSON(t, update), `"accountID":"account-1"`)
	assert.Contains(t, toJSON(t, update), "mocked-clinic")
}

func TestSettingsDatabase_UpsertError(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", context.Background(), mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("mocked-error"))

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "settings").Return(collectionHelper)

	settingsDba := databases.NewSettingsDatabase(dbHelper)

	err := settingsDba.Upsert(context.Background(), "account-1", models.SettingsDetails{})

	assert.EqualError(t, err, "mocked-error")
}
