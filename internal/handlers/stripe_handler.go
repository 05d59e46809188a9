package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	stripe "github.com/stripe/stripe-go/v82"

	"stripe_order_bridge/internal/models"
	"stripe_order_bridge/internal/services"
)

// Bounds the whole webhook pipeline: signature check, lookup, mutation and
// the optional capture call.
const webhookRequestTimeout = 30 * time.Second

// WebhookProcessor runs a raw delivery through verification, classification
// and the order state machine. Business outcomes are logged, not returned;
// the endpoint acknowledges regardless.
type WebhookProcessor interface {
	ProcessPayload(ctx context.Context, payload []byte, sigHeader string)
}

// CheckoutGateway opens a gateway-hosted payment collection flow.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, order *models.Order, opts services.CheckoutOptions) (*stripe.CheckoutSession, error)
}

// SettingsWriter updates operator-editable settings.
type SettingsWriter interface {
	SetInt(ctx context.Context, name string, value int) error
}

type StripeHandler struct {
	processor WebhookProcessor
	orders    services.OrderStore
	gateway   CheckoutGateway
	settings  SettingsWriter
}

func NewStripeHandler(processor WebhookProcessor, orders services.OrderStore, gateway CheckoutGateway, settings SettingsWriter) *StripeHandler {
	return &StripeHandler{processor: processor, orders: orders, gateway: gateway, settings: settings}
}

// HandleWebhook receives gateway deliveries. Once the body has been read the
// request is acknowledged no matter what the business outcome was; a non-2xx
// here would make Stripe retry conditions that can never be satisfied. Only
// an unreadable body fails the request.
func (h *StripeHandler) HandleWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unable to read request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), webhookRequestTimeout)
	defer cancel()

	h.processor.ProcessPayload(ctx, payload, c.Request().Header.Get("Stripe-Signature"))

	return c.NoContent(http.StatusOK)
}

// CreateCheckoutSession starts a payment collection flow for an order.
// mode=delayed holds funds for later capture instead of charging immediately.
func (h *StripeHandler) CreateCheckoutSession(c echo.Context) error {
	orderID := c.Param("orderID")
	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid order ID")
	}

	mode := services.CheckoutMode(c.QueryParam("mode"))
	switch mode {
	case "":
		mode = services.CheckoutModeDirect
	case services.CheckoutModeDirect, services.CheckoutModeDelayed:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid mode, expected direct or delayed")
	}

	order, err := h.orders.FindByOrderID(c.Request().Context(), orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load order: "+err.Error())
	}

	appURL := getEnv("APP_URL", "http://localhost:8080")
	opts := services.CheckoutOptions{
		Mode:       mode,
		SuccessURL: queryOrDefault(c, "success_url", appURL+"/checkout/success"),
		CancelURL:  queryOrDefault(c, "cancel_url", appURL+"/checkout/cancel"),
	}

	session, err := h.gateway.CreateCheckoutSession(c.Request().Context(), order, opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create checkout session: "+err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": session.ID,
		"url":        session.URL,
	})
}

// SetCaptureStatus updates the order status id that triggers fund capture.
// The cached value is invalidated by the settings write, so the change takes
// effect on the next order update.
func (h *StripeHandler) SetCaptureStatus(c echo.Context) error {
	var req struct {
		StatusID int `json:"status_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.StatusID < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "status_id must not be negative")
	}

	if err := h.settings.SetInt(c.Request().Context(), models.SettingCaptureStatusID, req.StatusID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update setting: "+err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status_id": req.StatusID,
	})
}

func queryOrDefault(c echo.Context, name, fallback string) string {
	if v := c.QueryParam(name); v != "" {
		return v
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
