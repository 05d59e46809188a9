package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"

	"stripe_order_bridge/internal/models"
)

// Object types carried in the event envelope's data.object.object field.
const (
	objectTypeCheckoutSession = "checkout.session"
	objectTypePaymentIntent   = "payment_intent"
)

// paymentOutcome selects which of the payment option's status mappings a
// transition targets.
type paymentOutcome int

const (
	outcomeSucceeded paymentOutcome = iota
	outcomeFailed
	outcomeAuthorized
)

// WebhookService authenticates, classifies and applies gateway webhook
// deliveries. Every business-level failure is logged and swallowed so the
// caller can acknowledge receipt: Stripe retries on non-2xx, and none of
// these conditions resolve on retry.
type WebhookService struct {
	verifier WebhookVerifier
	orders   OrderStore
	options  PaymentOptionStore
	history  CallbackRecorder
	eventLog EventLogger
}

func NewWebhookService(verifier WebhookVerifier, orders OrderStore, options PaymentOptionStore, history CallbackRecorder, eventLog EventLogger) *WebhookService {
	return &WebhookService{
		verifier: verifier,
		orders:   orders,
		options:  options,
		history:  history,
		eventLog: eventLog,
	}
}

// ProcessPayload runs one webhook delivery through the full pipeline:
// signature verification, classification, order resolution and the status
// state machine. Re-delivery of the same payload is safe; transitions assign
// absolute target state, so reapplying them converges on the same order.
func (s *WebhookService) ProcessPayload(ctx context.Context, payload []byte, sigHeader string) {
	event, err := s.verifier.VerifyWebhook(payload, sigHeader)
	if err != nil {
		s.recordDelivery(ctx, stripe.Event{}, payload, false)
		switch {
		case errors.Is(err, ErrWebhookSecretMissing):
			s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeWebhookSecretMissing, "")
		case errors.Is(err, ErrSignatureMissing):
			s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeSignatureNotFound, "")
		default:
			s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeSignatureInvalid, err.Error())
		}
		return
	}
	s.recordDelivery(ctx, event, payload, true)
	s.ProcessEvent(ctx, event)
}

// ProcessEvent dispatches an already verified event by its embedded object
// type. Unknown object types are surfaced, never dropped silently; a silent
// drop would hide gateway behavior changes.
func (s *WebhookService) ProcessEvent(ctx context.Context, event stripe.Event) {
	switch objectType(event) {
	case objectTypeCheckoutSession:
		s.processCheckoutSession(ctx, event)
	case objectTypePaymentIntent:
		s.processPaymentIntent(ctx, event)
	default:
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeUnsupportedObjectType, objectType(event))
	}
}

func objectType(event stripe.Event) string {
	if event.Data == nil {
		return ""
	}
	if v, ok := event.Data.Object["object"].(string); ok {
		return v
	}
	return ""
}

func (s *WebhookService) processCheckoutSession(ctx context.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeWebhookProcessingError,
			"malformed checkout.session payload: "+err.Error())
		return
	}
	if session.ClientReferenceID == "" {
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeOrderNotFound,
			"checkout session "+session.ID+" carries no client reference id")
		return
	}

	order, err := s.orders.FindByOrderID(ctx, session.ClientReferenceID)
	if err != nil {
		s.logResolutionFailure(err, "client reference "+session.ClientReferenceID)
		return
	}

	// The session id is audit data; keep it regardless of outcome.
	order.SetCustomData(models.CustomDataCheckoutSessionID, session.ID)

	switch {
	case event.Type == "checkout.session.completed" && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		order.IsPaid = true
		s.applyStatus(ctx, order, outcomeSucceeded)
	case event.Type == "checkout.session.completed" && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid:
		// Funds are held, not settled. An authorized order without its
		// payment intent id could never be captured, so when the session
		// carries no intent the order keeps its current state.
		if session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
			s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeNoPaymentIntentID,
				"checkout session "+session.ID+" for order "+order.OrderID+" carries no payment intent")
			break
		}
		order.IsPaid = false
		order.SetCustomData(models.CustomDataPaymentIntentID, session.PaymentIntent.ID)
		s.applyStatus(ctx, order, outcomeAuthorized)
	case event.Type == "checkout.session.async_payment_succeeded":
		order.IsPaid = true
		s.applyStatus(ctx, order, outcomeSucceeded)
	case event.Type == "checkout.session.async_payment_failed", event.Type == "checkout.session.expired":
		order.IsPaid = false
		s.applyStatus(ctx, order, outcomeFailed)
	default:
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeUnsupportedEventType, string(event.Type))
	}

	if err := s.orders.Save(ctx, order); err != nil {
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeWebhookProcessingError,
			fmt.Sprintf("order %s: %v", order.OrderID, err))
	}
}

func (s *WebhookService) processPaymentIntent(ctx context.Context, event stripe.Event) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeWebhookProcessingError,
			"malformed payment_intent payload: "+err.Error())
		return
	}

	order, err := s.orders.FindByPaymentIntentID(ctx, intent.ID)
	if err != nil {
		s.logResolutionFailure(err, "payment intent "+intent.ID)
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		order.IsPaid = true
		s.applyStatus(ctx, order, outcomeSucceeded)
	case "payment_intent.payment_failed":
		order.IsPaid = false
		s.applyStatus(ctx, order, outcomeFailed)
	default:
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeUnsupportedEventType, string(event.Type))
		return
	}

	if err := s.orders.Save(ctx, order); err != nil {
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeWebhookProcessingError,
			fmt.Sprintf("order %s: %v", order.OrderID, err))
	}
}

// applyStatus points the order at the status the payment option maps for the
// outcome. An unset or dangling mapping fails soft: the named configuration
// error is logged and the status stays put, while the caller's IsPaid change
// stands.
func (s *WebhookService) applyStatus(ctx context.Context, order *models.Order, outcome paymentOutcome) {
	code := mappingErrorCode(outcome)

	option, err := s.options.GetByID(ctx, order.PaymentOptionID)
	if err != nil || option == nil {
		s.eventLog.Log(models.SeverityError, eventSourceStripe, code,
			fmt.Sprintf("payment option %d not found for order %s", order.PaymentOptionID, order.OrderID))
		return
	}

	var statusID uint
	switch outcome {
	case outcomeSucceeded:
		statusID = option.SucceededStatusID
	case outcomeFailed:
		statusID = option.FailedStatusID
	case outcomeAuthorized:
		statusID = option.AuthorizedStatusID
	}
	if statusID == 0 {
		s.eventLog.Log(models.SeverityError, eventSourceStripe, code,
			fmt.Sprintf("payment option %q has no status mapping for order %s", option.Name, order.OrderID))
		return
	}

	status, err := s.options.GetStatus(ctx, statusID)
	if err != nil || status == nil {
		s.eventLog.Log(models.SeverityError, eventSourceStripe, code,
			fmt.Sprintf("order status %d does not exist (payment option %q, order %s)", statusID, option.Name, order.OrderID))
		return
	}

	order.StatusID = status.ID
}

func mappingErrorCode(outcome paymentOutcome) string {
	switch outcome {
	case outcomeFailed:
		return CodeFailedStatusNotSet
	case outcomeAuthorized:
		return CodeAuthorizedStatusNotSet
	default:
		return CodePaidStatusNotSet
	}
}

func (s *WebhookService) logResolutionFailure(err error, ref string) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeOrderNotFound, ref)
	case errors.Is(err, ErrAmbiguousOrder):
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeAmbiguousOrderMatch, ref)
	default:
		s.eventLog.Log(models.SeverityError, eventSourceStripe, CodeWebhookProcessingError,
			fmt.Sprintf("%s: %v", ref, err))
	}
}

func (s *WebhookService) recordDelivery(ctx context.Context, event stripe.Event, payload []byte, valid bool) {
	if s.history == nil {
		return
	}
	s.history.Record(ctx, &models.WebhookEventRecord{
		PaymentGateway: models.PaymentGatewayStripe,
		EventID:        event.ID,
		EventType:      string(event.Type),
		SignatureValid: valid,
		Payload:        payload,
	})
}
