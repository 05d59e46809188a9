package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"

	"stripe_order_bridge/internal/models"
)

var (
	// ErrWebhookSecretMissing means no webhook signing secret is configured;
	// verification must not be attempted.
	ErrWebhookSecretMissing = errors.New("stripe webhook secret is not configured")
	// ErrSignatureMissing means the delivery carried no Stripe-Signature header.
	ErrSignatureMissing = errors.New("stripe signature header is missing")
	// ErrSignatureInvalid covers both a failed HMAC check and a payload that
	// is not a well-formed event envelope.
	ErrSignatureInvalid = errors.New("stripe signature verification failed")
	// ErrSecretKeyMissing means no API credential is configured for gateway calls.
	ErrSecretKeyMissing = errors.New("stripe secret key is not configured")
	// ErrPaymentIntentIDMissing means a capture was requested without an intent id.
	ErrPaymentIntentIDMissing = errors.New("payment intent id is empty")
)

// WebhookVerifier authenticates a raw webhook delivery. On success the
// returned event is trusted for the rest of processing.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error)
}

// CaptureClient converts a previously authorized payment into a settled
// charge. One attempt per call; retrying is the caller's (non-)concern.
type CaptureClient interface {
	CapturePayment(ctx context.Context, paymentIntentID string) (CaptureResult, error)
}

// CaptureResult reports how much of the held amount was settled.
type CaptureResult struct {
	PaymentIntentID  string
	AmountReceived   int64
	AmountCapturable int64
}

// Full reports whether the whole held amount was captured.
func (r CaptureResult) Full() bool {
	return r.AmountCapturable == 0
}

type CheckoutMode string

const (
	// CheckoutModeDirect charges immediately on completion.
	CheckoutModeDirect CheckoutMode = "direct"
	// CheckoutModeDelayed authorizes only; funds are captured later when the
	// order reaches the configured capture status.
	CheckoutModeDelayed CheckoutMode = "delayed"
)

// CheckoutOptions carries the per-session inputs for session creation.
type CheckoutOptions struct {
	Mode       CheckoutMode
	SuccessURL string
	CancelURL  string
}

// StripeService wraps the pieces of the Stripe SDK this module uses: webhook
// verification, payment intent capture and checkout session creation.
type StripeService struct {
	secretKey     string
	webhookSecret string
}

// NewStripeService reads credentials from the environment, mirroring how the
// rest of the process is configured.
func NewStripeService() *StripeService {
	secretKey := os.Getenv("STRIPE_SECRET_KEY")
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")

	// Set default key for SDK calls
	stripe.Key = secretKey

	return &StripeService{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
	}
}

// VerifyWebhook checks the delivery's signature header against the shared
// secret and parses the envelope. Pure over its inputs; callers log failures.
func (s *StripeService) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, ErrWebhookSecretMissing
	}
	if sigHeader == "" {
		return stripe.Event{}, ErrSignatureMissing
	}
	event, err := webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return event, nil
}

// CapturePayment captures the payment intent with the supplied id. The
// gateway is called exactly once; provider faults come back with the provider
// message intact for logging.
func (s *StripeService) CapturePayment(ctx context.Context, paymentIntentID string) (CaptureResult, error) {
	if s.secretKey == "" {
		return CaptureResult{}, ErrSecretKeyMissing
	}
	if paymentIntentID == "" {
		return CaptureResult{}, ErrPaymentIntentIDMissing
	}

	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	intent, err := paymentintent.Capture(paymentIntentID, params)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("stripe capture %s: %w", paymentIntentID, err)
	}

	return CaptureResult{
		PaymentIntentID:  intent.ID,
		AmountReceived:   intent.AmountReceived,
		AmountCapturable: intent.AmountCapturable,
	}, nil
}

// CreateCheckoutSession opens a Stripe-hosted payment collection flow for the
// order. The order identifier rides along as the session's client reference
// so the completion webhook can find its way back. Delayed mode holds funds
// with manual capture instead of charging immediately.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, order *models.Order, opts CheckoutOptions) (*stripe.CheckoutSession, error) {
	if s.secretKey == "" {
		return nil, ErrSecretKeyMissing
	}
	if order == nil {
		return nil, errors.New("order is required")
	}
	if opts.SuccessURL == "" || opts.CancelURL == "" {
		return nil, errors.New("success and cancel urls are required")
	}

	description := order.Description
	if description == "" {
		description = "Order " + order.OrderID
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(opts.SuccessURL),
		CancelURL:         stripe.String(opts.CancelURL),
		ClientReferenceID: stripe.String(order.OrderID),
		// Totals are computed upstream, so the session carries a single
		// consolidated line item rather than per-product rows.
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(order.Currency)),
					UnitAmount: stripe.Int64(order.GrandTotal),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
			},
		},
	}
	if opts.Mode == CheckoutModeDelayed {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			CaptureMethod: stripe.String("manual"),
		}
	}
	params.Context = ctx

	session, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session for order %q: %w", order.OrderID, err)
	}
	return session, nil
}
