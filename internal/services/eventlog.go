package services

import (
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stripe_order_bridge/internal/models"
)

// Source tag for every entry this module writes.
const eventSourceStripe = "Stripe"

// Stable codes for every business-level failure. Each maps to exactly one
// condition so operators can filter the log and replay manually.
const (
	CodeWebhookSecretMissing   = "WEBHOOK_SECRET_MISSING"
	CodeSignatureNotFound      = "SIGNATURE_NOT_FOUND"
	CodeSignatureInvalid       = "SIGNATURE_INVALID"
	CodeUnsupportedObjectType  = "UNSUPPORTED_OBJECT_TYPE"
	CodeUnsupportedEventType   = "UNSUPPORTED_EVENT_TYPE"
	CodeOrderNotFound          = "ORDER_NOT_FOUND"
	CodeAmbiguousOrderMatch    = "AMBIGUOUS_ORDER_MATCH"
	CodePaidStatusNotSet       = "PAID_STATUS_NOT_SET"
	CodeFailedStatusNotSet     = "FAILED_STATUS_NOT_SET"
	CodeAuthorizedStatusNotSet = "AUTHORIZED_STATUS_NOT_SET"
	CodeNoPaymentIntentID      = "NO_PAYMENT_INTENT_ID"
	CodePaymentNotApproved     = "PAYMENT_NOT_APPROVED"
	CodePaymentIntentMissing   = "PAYMENT_INTENT_MISSING"
	CodeSecretKeyMissing       = "SECRET_KEY_MISSING"
	CodeCaptureFailed          = "CAPTURE_FAILED"
	CodeCaptureSucceeded       = "CAPTURE_SUCCEEDED"
	CodePartialCapture         = "PARTIAL_CAPTURE"
	CodeWebhookProcessingError = "WEBHOOK_PROCESSING_ERROR"
)

// EventLogger receives every business-level outcome worth surfacing. All
// error paths in the webhook and capture pipelines route here; none of them
// abort processing.
type EventLogger interface {
	Log(severity models.EventSeverity, source, code, detail string)
}

// EventLogService persists event log entries and mirrors them to the process
// log. A nil db keeps the process-log mirror only.
type EventLogService struct {
	db *gorm.DB
}

func NewEventLogService(db *gorm.DB) *EventLogService {
	return &EventLogService{db: db}
}

func (s *EventLogService) Log(severity models.EventSeverity, source, code, detail string) {
	if detail != "" {
		log.Printf("[%s] %s: %s (%s)", severity, source, code, detail)
	} else {
		log.Printf("[%s] %s: %s", severity, source, code)
	}

	if s.db == nil {
		return
	}

	entry := models.EventLogEntry{
		EntryID:  uuid.NewString(),
		Severity: severity,
		Source:   source,
		Code:     code,
		Detail:   detail,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to persist event log entry %s: %v", code, err)
	}
}
