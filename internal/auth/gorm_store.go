package auth

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned by the stores when no row matches.
var ErrNotFound = errors.New("not found")

// CodeStore persists authorization codes.
type CodeStore interface {
	CreateCode(ctx context.Context, code *models.OAuthCode) error
	// GetCode looks a code up by value and the client it was issued to.
	GetCode(ctx context.Context, code, clientID string) (*models.OAuthCode, error)
	// RemoveCode deletes the code and reports whether this call removed it.
	// Of several concurrent callers at most one observes true.
	RemoveCode(ctx context.Context, code, clientID string) (bool, error)
}

// TokenStore persists issued bearer tokens. Tokens are revoked, never deleted.
type TokenStore interface {
	CreateToken(ctx context.Context, token *models.OAuthToken) error
	GetByAccess(ctx context.Context, access string) (*models.OAuthToken, error)
	GetByRefresh(ctx context.Context, refresh string) (*models.OAuthToken, error)
	RevokeToken(ctx context.Context, id uint) error
}

type GormCodeStore struct {
	db *gorm.DB
}

func NewGormCodeStore(db *gorm.DB) *GormCodeStore {
	return &GormCodeStore{db: db}
}

func (s *GormCodeStore) CreateCode(ctx context.Context, code *models.OAuthCode) error {
	return s.db.WithContext(ctx).Create(code).Error
}

func (s *GormCodeStore) GetCode(ctx context.Context, code, clientID string) (*models.OAuthCode, error) {
	var oauthCode models.OAuthCode
	if err := s.db.WithContext(ctx).Where("code = ? AND client_id = ?", code, clientID).First(&oauthCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &oauthCode, nil
}

func (s *GormCodeStore) RemoveCode(ctx context.Context, code, clientID string) (bool, error) {
	result := s.db.WithContext(ctx).Where("code = ? AND client_id = ?", code, clientID).Delete(&models.OAuthCode{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

type GormTokenStore struct {
	db *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

func (s *GormTokenStore) CreateToken(ctx context.Context, token *models.OAuthToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *GormTokenStore) GetByAccess(ctx context.Context, access string) (*models.OAuthToken, error) {
	return s.first(ctx, "access_token = ?", access)
}

func (s *GormTokenStore) GetByRefresh(ctx context.Context, refresh string) (*models.OAuthToken, error) {
	return s.first(ctx, "refresh_token = ?", refresh)
}

func (s *GormTokenStore) RevokeToken(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&models.OAuthToken{}).Where("id = ?", id).Update("revoked", true).Error
}

func (s *GormTokenStore) first(ctx context.Context, query string, value string) (*models.OAuthToken, error) {
	var token models.OAuthToken
	if err := s.db.WithContext(ctx).Where(query, value).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}
