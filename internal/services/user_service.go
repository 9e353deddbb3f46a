package services

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"gorm.io/gorm"
)

// UserService resolves resource owners. Users are created on first consent and never listed.
type UserService interface {
	FindOrCreateUser(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

type userService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) UserService {
	return &userService{db: db}
}

func (s *userService) FindOrCreateUser(ctx context.Context, username string) (*models.User, error) {
	user := models.User{Username: username}
	if err := s.db.WithContext(ctx).Where(models.User{Username: username}).FirstOrCreate(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
