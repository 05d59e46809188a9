package models

import (
	"time"

	"gorm.io/gorm"
)

// Name of the setting holding the order status id that triggers fund capture.
const SettingCaptureStatusID = "OrderStatusForCapture"

// Setting is an operator-editable configuration value. Settings are read
// through the cache and invalidated on write, so edits take effect without a
// restart.
type Setting struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name  string `gorm:"type:varchar(100);uniqueIndex" json:"name"`
	Value string `gorm:"type:text" json:"value"`
}
