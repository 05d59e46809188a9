package services

import (
	"context"
	"log"

	"gorm.io/gorm"

	"stripe_order_bridge/internal/models"
)

// CallbackRecorder appends a raw gateway delivery to the audit trail.
type CallbackRecorder interface {
	Record(ctx context.Context, record *models.WebhookEventRecord)
}

// WebhookHistoryService persists every delivery, valid or not. Recording is
// best effort; a failed insert must never block event processing.
type WebhookHistoryService struct {
	db *gorm.DB
}

func NewWebhookHistoryService(db *gorm.DB) *WebhookHistoryService {
	return &WebhookHistoryService{db: db}
}

func (s *WebhookHistoryService) Record(ctx context.Context, record *models.WebhookEventRecord) {
	if s.db == nil {
		return
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		log.Printf("Failed to record webhook delivery %s: %v", record.EventID, err)
	}
}
