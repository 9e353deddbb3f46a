package services

import (
	"context"
	"errors"
	"time"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseService is the append-only store behind the purchase ledger.
// Create methods report whether a new row was written; a duplicate (purchaser, app) pair is ignored.
// Expiry is stored and compared in UTC.
type PurchaseService interface {
	CreatePurchase(ctx context.Context, purchase *models.Purchase) (bool, error)
	CreateAnonymousPurchase(ctx context.Context, purchase *models.AnonymousPurchase) (bool, error)
	FindActivePurchase(ctx context.Context, userID uint, appID string, now time.Time) (*models.Purchase, error)
	FindActiveAnonymousPurchase(ctx context.Context, uuid, appID string, now time.Time) (*models.AnonymousPurchase, error)
}

type purchaseService struct {
	db *gorm.DB
}

func NewPurchaseService(db *gorm.DB) PurchaseService {
	return &purchaseService{db: db}
}

func (s *purchaseService) CreatePurchase(ctx context.Context, purchase *models.Purchase) (bool, error) {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(purchase)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *purchaseService) CreateAnonymousPurchase(ctx context.Context, purchase *models.AnonymousPurchase) (bool, error) {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(purchase)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *purchaseService) FindActivePurchase(ctx context.Context, userID uint, appID string, now time.Time) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND app_id = ?", userID, appID).
		Where("(until IS NULL OR until > ?)", now.UTC()).
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

func (s *purchaseService) FindActiveAnonymousPurchase(ctx context.Context, uuid, appID string, now time.Time) (*models.AnonymousPurchase, error) {
	var purchase models.AnonymousPurchase
	err := s.db.WithContext(ctx).
		Where("uuid = ? AND app_id = ?", uuid, appID).
		Where("(until IS NULL OR until > ?)", now.UTC()).
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}
