package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"stripe_order_bridge/internal/models"
)

// PaymentOptionStore resolves payment option configuration and order status
// records. Lookups are fallible; a missing record is (nil, nil), never a
// fabricated value.
type PaymentOptionStore interface {
	GetByID(ctx context.Context, id uint) (*models.PaymentOption, error)
	GetByName(ctx context.Context, name string) (*models.PaymentOption, error)
	GetStatus(ctx context.Context, id uint) (*models.OrderStatus, error)
}

// PaymentOptionService is the gorm-backed PaymentOptionStore. The by-name
// lookup is cached because the capture trigger reads it on every order write.
type PaymentOptionService struct {
	db    *gorm.DB
	cache Cache
}

func NewPaymentOptionService(db *gorm.DB, cache Cache) *PaymentOptionService {
	return &PaymentOptionService{db: db, cache: cache}
}

func (s *PaymentOptionService) GetByID(ctx context.Context, id uint) (*models.PaymentOption, error) {
	var option models.PaymentOption
	err := s.db.WithContext(ctx).First(&option, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load payment option %d: %w", id, err)
	}
	return &option, nil
}

func (s *PaymentOptionService) GetByName(ctx context.Context, name string) (*models.PaymentOption, error) {
	return GetOrSet(s.cache, ctx, optionNameKeyPrefix+name, optionCacheTTL, func() (*models.PaymentOption, error) {
		var option models.PaymentOption
		err := s.db.WithContext(ctx).Where("name = ?", name).First(&option).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("load payment option %q: %w", name, err)
		}
		return &option, nil
	})
}

func (s *PaymentOptionService) GetStatus(ctx context.Context, id uint) (*models.OrderStatus, error) {
	if id == 0 {
		return nil, nil
	}
	var status models.OrderStatus
	err := s.db.WithContext(ctx).First(&status, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load order status %d: %w", id, err)
	}
	return &status, nil
}
