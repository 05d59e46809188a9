package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type PaymentGateway string

const (
	PaymentGatewayStripe PaymentGateway = "stripe"
)

// WebhookEventRecord is the audit trail of raw gateway deliveries, including
// ones that failed signature verification. Stripe delivers at least once, so
// the same EventID may appear more than once; the record is append-only and
// never consulted for dispatch decisions.
type WebhookEventRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PaymentGateway PaymentGateway  `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	EventID        string          `gorm:"type:varchar(100);index" json:"event_id"`
	EventType      string          `gorm:"type:varchar(100);index" json:"event_type"`
	SignatureValid bool            `gorm:"default:false" json:"signature_valid"`
	Payload        json.RawMessage `gorm:"type:jsonb" json:"payload"`
}
