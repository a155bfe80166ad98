// doc-flow/internal/services/services_test.go
package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/colaisr/doc-flow/models"
)

// setupTestDB opens an in-memory database migrated with the full schema and
// the default stage pipeline. MaxOpenConns(1) keeps every query on the single
// shared in-memory connection.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.LeadStage{},
		&models.LeadStageHistory{},
		&models.Lead{},
		&models.DocumentTemplate{},
		&models.Document{},
		&models.DocumentSignature{},
		&models.SigningLink{},
	))
	require.NoError(t, SeedDefaultStages(db))
	return db
}

type fixtures struct {
	Org   models.Organization
	User  models.User
	Stage models.LeadStage
	Lead  models.Lead
}

// seedFixtures creates an organization, a user and a lead at the default
// stage.
func seedFixtures(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()
	fx := fixtures{Org: models.Organization{Name: "Test Office"}}
	require.NoError(t, db.Create(&fx.Org).Error)

	fx.User = models.User{
		OrganizationID: fx.Org.ID,
		Login:          "tester",
		PasswordHash:   "x",
		FullName:       "Test User",
	}
	require.NoError(t, db.Create(&fx.User).Error)

	stage, err := DefaultStage(db)
	require.NoError(t, err)
	fx.Stage = *stage

	fx.Lead = models.Lead{
		OrganizationID:    fx.Org.ID,
		StageID:           fx.Stage.ID,
		CreatedByUserID:   fx.User.ID,
		Source:            "manual",
		FullName:          "ישראל ישראלי",
		Phone:             "050-1234567",
		TransactionAmount: 1250000,
	}
	require.NoError(t, db.Create(&fx.Lead).Error)
	return fx
}

func createTemplate(t *testing.T, db *gorm.DB, fx fixtures, content, blocks string) models.DocumentTemplate {
	t.Helper()
	template := models.DocumentTemplate{
		OrganizationID:  fx.Org.ID,
		Name:            "חוזה מכר",
		Content:         content,
		SignatureBlocks: blocks,
		CreatedByUserID: fx.User.ID,
		IsActive:        true,
	}
	require.NoError(t, db.Create(&template).Error)
	return template
}

func intPtr(n int) *int { return &n }
