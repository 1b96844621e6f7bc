package databases

// go generate: mockery --name SettingsDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicdesk/clinic-api/models"
)

const settingsName = "settings"

// SettingsDatabase contains the methods to use with the settings database.
// Settings is a per-account singleton, so the API is narrower than the
// other collections: fetch by account and upsert by account.
type SettingsDatabase interface {
	FindByAccount(ctx context.Context, accountID string) (*models.Settings, error)
	Upsert(ctx context.Context, accountID string, details models.SettingsDetails) error
}

type settingsDatabase struct {
	db DatabaseHelper
}

// NewSettingsDatabase initializes a new instance of settings database with the provided db connection
func NewSettingsDatabase(db DatabaseHelper) SettingsDatabase {
	return &settingsDatabase{
		db: db,
	}
}

func (s *settingsDatabase) FindByAccount(ctx context.Context, accountID string) (*models.Settings, error) {
	settings := &models.Settings{}
	err := s.db.Collection(settingsName).FindOne(ctx, bson.M{"settings.accountID": accountID}).Decode(&settings)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *settingsDatabase) Upsert(ctx context.Context, accountID string, details models.SettingsDetails) error {
	details.AccountID = accountID
	upsert := true
	return s.db.Collection(settingsName).UpdateOne(ctx,
		bson.M{"settings.accountID": accountID},
		bson.M{"$set": bson.M{"settings": details}},
		&options.UpdateOptions{Upsert: &upsert},
	)
}
