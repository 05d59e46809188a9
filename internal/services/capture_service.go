package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stripe_order_bridge/internal/models"
)

// Name of the payment option whose orders this trigger watches.
const StripePaymentOptionName = "Stripe"

// The gateway call happens inside the order-update path, so it runs under its
// own deadline and its failures never reach the save.
const captureTimeout = 20 * time.Second

// CaptureSettings exposes the single dynamic setting the trigger needs.
type CaptureSettings interface {
	CaptureStatusID(ctx context.Context) (uint, error)
}

// CaptureService fires fund capture when an order moves into the configured
// capture status from the authorized status. It is registered with the order
// store as a pre-save interceptor, so it sees both the prior persisted state
// and the incoming one.
type CaptureService struct {
	settings CaptureSettings
	options  PaymentOptionStore
	gateway  CaptureClient
	eventLog EventLogger
}

func NewCaptureService(settings CaptureSettings, options PaymentOptionStore, gateway CaptureClient, eventLog EventLogger) *CaptureService {
	return &CaptureService{
		settings: settings,
		options:  options,
		gateway:  gateway,
		eventLog: eventLog,
	}
}

// BeforeOrderSave implements OrderInterceptor. It always returns nil: a
// capture failure is reported, not rolled into the status write that
// triggered it. The prior-status-was-authorized gate doubles as the
// idempotency guard, since that transition happens once in an order's
// lifetime.
func (s *CaptureService) BeforeOrderSave(ctx context.Context, prev, next *models.Order) error {
	captureStatusID, err := s.settings.CaptureStatusID(ctx)
	if err != nil {
		s.eventLog.Log(models.SeverityWarning, eventSourceStripe, CodeCaptureFailed,
			"capture status setting unavailable: "+err.Error())
		return nil
	}
	if captureStatusID == 0 {
		return nil
	}

	option, err := s.options.GetByName(ctx, StripePaymentOptionName)
	if err != nil {
		s.eventLog.Log(models.SeverityWarning, eventSourceStripe, CodeCaptureFailed,
			"payment option lookup failed: "+err.Error())
		return nil
	}
	if option == nil || next.PaymentOptionID != option.ID {
		return nil
	}

	if next.StatusID != captureStatusID {
		return nil
	}

	intentID := next.CustomData.Get(models.CustomDataPaymentIntentID)
	if option.AuthorizedStatusID == 0 || prev.StatusID != option.AuthorizedStatusID {
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodePaymentNotApproved,
			fmt.Sprintf("order %s, intent %s: reached capture status from status %d",
				next.OrderID, intentOrNone(intentID), prev.StatusID))
		return nil
	}

	if intentID == "" {
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodePaymentIntentMissing,
			"order "+next.OrderID)
		return nil
	}

	captureCtx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	result, err := s.gateway.CapturePayment(captureCtx, intentID)
	switch {
	case errors.Is(err, ErrSecretKeyMissing):
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeSecretKeyMissing,
			fmt.Sprintf("order %s, intent %s", next.OrderID, intentID))
		return nil
	case err != nil:
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeCaptureFailed,
			fmt.Sprintf("order %s, intent %s: %v", next.OrderID, intentID, err))
		return nil
	}
	if !result.Full() {
		s.eventLog.Log(models.SeverityWarning, eventSourceStripe, CodePartialCapture,
			fmt.Sprintf("order %s, intent %s: received %d, still capturable %d",
				next.OrderID, intentID, result.AmountReceived, result.AmountCapturable))
		return nil
	}
	s.eventLog.Log(models.SeverityInfo, eventSourceStripe, CodeCaptureSucceeded,
		fmt.Sprintf("order %s, intent %s: received %d", next.OrderID, intentID, result.AmountReceived))
	return nil
}

func intentOrNone(intentID string) string {
	if intentID == "" {
		return "none"
	}
	return intentID
}
