package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentOption is the per-gateway configuration record. The three status
// references define which order status each payment outcome maps to. All
// three should be configured; a missing mapping is reported as a
// configuration error when a transition needs it, never a crash.
type PaymentOption struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name               string `gorm:"type:varchar(100);uniqueIndex" json:"name"`
	SucceededStatusID  uint   `json:"succeeded_status_id"`
	FailedStatusID     uint   `json:"failed_status_id"`
	AuthorizedStatusID uint   `json:"authorized_status_id"`
}
