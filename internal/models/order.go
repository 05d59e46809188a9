package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Keys the webhook pipeline writes into an order's custom data.
const (
	CustomDataCheckoutSessionID = "checkoutSessionId"
	CustomDataPaymentIntentID   = "paymentIntentId"
)

// CustomData is a string key/value bag persisted as jsonb alongside the order.
// Gateway-assigned identifiers are stashed here; once a capture succeeds the
// paymentIntentId value is retained for audit, not cleared.
type CustomData map[string]string

func (d CustomData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *CustomData) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return errors.New("unsupported type for CustomData")
	}
}

func (d CustomData) Get(key string) string {
	if d == nil {
		return ""
	}
	return d[key]
}

// Order is the unit of reconciliation. Its OrderID doubles as the checkout
// session's client reference, so webhook deliveries can be traced back to it.
type Order struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OrderID         string     `gorm:"type:varchar(100);uniqueIndex" json:"order_id"`
	PaymentOptionID uint       `gorm:"index" json:"payment_option_id"`
	StatusID        uint       `gorm:"index" json:"status_id"`
	IsPaid          bool       `gorm:"default:false" json:"is_paid"`
	GrandTotal      int64      `json:"grand_total"` // minor currency units
	Currency        string     `gorm:"type:varchar(10)" json:"currency"`
	Description     string     `gorm:"type:text" json:"description"`
	CustomData      CustomData `gorm:"type:jsonb" json:"custom_data"`

	// Relationships
	PaymentOption PaymentOption `gorm:"foreignKey:PaymentOptionID" json:"payment_option,omitempty"`
	Status        OrderStatus   `gorm:"foreignKey:StatusID" json:"status,omitempty"`
}

// SetCustomData writes a key into the order's custom data, allocating the map
// on first use.
func (o *Order) SetCustomData(key, value string) {
	if o.CustomData == nil {
		o.CustomData = CustomData{}
	}
	o.CustomData[key] = value
}
