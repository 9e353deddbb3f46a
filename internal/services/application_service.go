package services

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"gorm.io/gorm"
)

// ApplicationService provides read access to the application catalog
type ApplicationService interface {
	// GetAllApplications retrieves all applications from the database
	GetAllApplications(ctx context.Context) ([]models.Application, error)
	// GetApplicationByID retrieves an application by its app id
	GetApplicationByID(ctx context.Context, appID string) (*models.Application, error)
}

// applicationService is the implementation of the ApplicationService interface
type applicationService struct {
	db *gorm.DB
}

// NewApplicationService creates a new instance of ApplicationService
func NewApplicationService(db *gorm.DB) ApplicationService {
	return &applicationService{db: db}
}

func (s *applicationService) GetAllApplications(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	if err := s.db.WithContext(ctx).Order("app_id").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *applicationService) GetApplicationByID(ctx context.Context, appID string) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).Where("app_id = ?", appID).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}
