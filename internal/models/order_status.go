package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus is a named stage in the order lifecycle. The webhook pipeline
// only cares about its identity; display names belong to the host commerce
// layer.
type OrderStatus struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name string `gorm:"type:varchar(100)" json:"name"`
}
