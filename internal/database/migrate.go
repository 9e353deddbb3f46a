package database

import (
	"context"
	"fmt"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.OAuthClient{},
		&models.OAuthCode{},
		&models.OAuthToken{},
		&models.Application{},
		&models.Purchase{},
		&models.AnonymousPurchase{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info("Database schema migrated")
	return nil
}

// DevelopmentApplications is the catalog seeded in development.
var DevelopmentApplications = []models.Application{
	{AppID: "app1", Name: "Demo Application", RecommendedAmount: 500},
	{AppID: "app2", Name: "Second Demo Application", RecommendedAmount: 1000},
}

// SeedApplications inserts apps that are not in the catalog yet.
func SeedApplications(ctx context.Context, db *gorm.DB, apps []models.Application) error {
	if len(apps) == 0 {
		return nil
	}
	result := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&apps)
	if result.Error != nil {
		return fmt.Errorf("failed to seed applications: %w", result.Error)
	}
	log.WithFields(logrus.Fields{
		"requested": len(apps),
		"inserted":  result.RowsAffected,
	}).Info("Seeded application catalog")
	return nil
}
