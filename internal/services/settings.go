package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"stripe_order_bridge/internal/models"
)

const (
	settingsCacheTTL    = 5 * time.Minute
	settingKeyPrefix    = "setting:"
	optionCacheTTL      = 5 * time.Minute
	optionNameKeyPrefix = "payment_option:name:"
)

// SettingsService reads operator-editable settings through a TTL-bounded
// cache. Writes invalidate the cached value so a configuration change is
// never served past its TTL.
type SettingsService struct {
	db    *gorm.DB
	cache Cache
}

func NewSettingsService(db *gorm.DB, cache Cache) *SettingsService {
	return &SettingsService{db: db, cache: cache}
}

// GetString returns the raw value of a setting, or "" when the setting does
// not exist.
func (s *SettingsService) GetString(ctx context.Context, name string) (string, error) {
	return GetOrSet(s.cache, ctx, settingKeyPrefix+name, settingsCacheTTL, func() (string, error) {
		var setting models.Setting
		err := s.db.WithContext(ctx).Where("name = ?", name).First(&setting).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", nil
			}
			return "", err
		}
		return setting.Value, nil
	})
}

// GetInt returns a setting parsed as an integer. Absent or unparsable values
// yield zero, matching "unconfigured".
func (s *SettingsService) GetInt(ctx context.Context, name string) (int, error) {
	raw, err := s.GetString(ctx, name)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return value, nil
}

// SetInt upserts a setting and invalidates its cached value.
func (s *SettingsService) SetInt(ctx context.Context, name string, value int) error {
	return s.SetString(ctx, name, strconv.Itoa(value))
}

// SetString upserts a setting and invalidates its cached value.
func (s *SettingsService) SetString(ctx context.Context, name, value string) error {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&setting).Error
	switch {
	case err == nil:
		setting.Value = value
		err = s.db.WithContext(ctx).Save(&setting).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		setting = models.Setting{Name: name, Value: value}
		err = s.db.WithContext(ctx).Create(&setting).Error
	}
	if err != nil {
		return fmt.Errorf("save setting %s: %w", name, err)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, settingKeyPrefix+name)
	}
	return nil
}

// CaptureStatusID returns the order status id that triggers fund capture.
// Zero means capture is not configured and the trigger stays inert.
func (s *SettingsService) CaptureStatusID(ctx context.Context) (uint, error) {
	value, err := s.GetInt(ctx, models.SettingCaptureStatusID)
	if err != nil || value <= 0 {
		return 0, err
	}
	return uint(value), nil
}
