package services

import (
	"context"
	"errors"
	"testing"

	"stripe_order_bridge/internal/models"
)

type fakeCaptureSettings struct {
	statusID uint
	err      error
}

func (f *fakeCaptureSettings) CaptureStatusID(context.Context) (uint, error) {
	return f.statusID, f.err
}

type countingCapture struct {
	calls  int
	lastID string
	result CaptureResult
	err    error
}

func (c *countingCapture) CapturePayment(_ context.Context, paymentIntentID string) (CaptureResult, error) {
	c.calls++
	c.lastID = paymentIntentID
	return c.result, c.err
}

func authorizedOrder() *models.Order {
	order := testOrder("A-100")
	order.StatusID = statusAuthorized
	order.SetCustomData(models.CustomDataPaymentIntentID, "pi_1")
	return order
}

func newTestCaptureService(settings *fakeCaptureSettings, gateway *countingCapture) (*CaptureService, *recordingLog) {
	options := newFakeOptionStore([]*models.PaymentOption{stripeOption()}, allStatuses())
	eventLog := &recordingLog{}
	return NewCaptureService(settings, options, gateway, eventLog), eventLog
}

func TestCaptureTriggerGating(t *testing.T) {
	tests := []struct {
		name          string
		captureStatus uint
		mutate        func(prev, next *models.Order)
		wantCalls     int
		wantLogCode   string
	}{
		{
			name:          "authorized into capture status fires",
			captureStatus: statusCapture,
			mutate: func(prev, next *models.Order) {
				next.StatusID = statusCapture
			},
			wantCalls:   1,
			wantLogCode: CodeCaptureSucceeded,
		},
		{
			name:          "capture status unconfigured",
			captureStatus: 0,
			mutate: func(prev, next *models.Order) {
				next.StatusID = statusCapture
			},
			wantCalls: 0,
		},
		{
			name:          "prior status was not authorized",
			captureStatus: statusCapture,
			mutate: func(prev, next *models.Order) {
				prev.StatusID = statusNew
				next.StatusID = statusCapture
			},
			wantCalls:   0,
			wantLogCode: CodePaymentNotApproved,
		},
		{
			name:          "new status is not the capture status",
			captureStatus: statusCapture,
			mutate: func(prev, next *models.Order) {
				next.StatusID = statusSucceeded
			},
			wantCalls: 0,
		},
		{
			name:          "order belongs to another payment option",
			captureStatus: statusCapture,
			mutate: func(prev, next *models.Order) {
				prev.PaymentOptionID = 99
				next.PaymentOptionID = 99
				next.StatusID = statusCapture
			},
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &countingCapture{}
			svc, eventLog := newTestCaptureService(&fakeCaptureSettings{statusID: tt.captureStatus}, gateway)

			prev := authorizedOrder()
			next := authorizedOrder()
			tt.mutate(prev, next)

			if err := svc.BeforeOrderSave(context.Background(), prev, next); err != nil {
				t.Fatalf("BeforeOrderSave returned %v; want nil", err)
			}
			if gateway.calls != tt.wantCalls {
				t.Errorf("capture calls = %d; want %d", gateway.calls, tt.wantCalls)
			}
			if tt.wantLogCode != "" && eventLog.count(tt.wantLogCode) != 1 {
				t.Errorf("log entries for %s = %d; want 1", tt.wantLogCode, eventLog.count(tt.wantLogCode))
			}
		})
	}
}

func TestCaptureTriggerUsesStoredIntent(t *testing.T) {
	gateway := &countingCapture{}
	svc, _ := newTestCaptureService(&fakeCaptureSettings{statusID: statusCapture}, gateway)

	prev := authorizedOrder()
	next := authorizedOrder()
	next.StatusID = statusCapture

	if err := svc.BeforeOrderSave(context.Background(), prev, next); err != nil {
		t.Fatalf("BeforeOrderSave returned %v", err)
	}
	if gateway.lastID != "pi_1" {
		t.Errorf("captured intent = %q; want %q", gateway.lastID, "pi_1")
	}
}

func TestCaptureTriggerMissingIntent(t *testing.T) {
	gateway := &countingCapture{}
	svc, eventLog := newTestCaptureService(&fakeCaptureSettings{statusID: statusCapture}, gateway)

	prev := authorizedOrder()
	next := authorizedOrder()
	next.StatusID = statusCapture
	next.CustomData = nil

	if err := svc.BeforeOrderSave(context.Background(), prev, next); err != nil {
		t.Fatalf("BeforeOrderSave returned %v", err)
	}
	if gateway.calls != 0 {
		t.Errorf("capture calls = %d; want 0", gateway.calls)
	}
	if eventLog.count(CodePaymentIntentMissing) != 1 {
		t.Errorf("PAYMENT_INTENT_MISSING entries = %d; want 1", eventLog.count(CodePaymentIntentMissing))
	}
}

func TestCaptureTriggerGatewayFailureDoesNotFailSave(t *testing.T) {
	gateway := &countingCapture{err: errors.New("intent pi_1 is not capturable")}
	svc, eventLog := newTestCaptureService(&fakeCaptureSettings{statusID: statusCapture}, gateway)

	prev := authorizedOrder()
	next := authorizedOrder()
	next.StatusID = statusCapture

	if err := svc.BeforeOrderSave(context.Background(), prev, next); err != nil {
		t.Fatalf("BeforeOrderSave returned %v; capture failure must not reach the save", err)
	}
	if eventLog.count(CodeCaptureFailed) != 1 {
		t.Errorf("CAPTURE_FAILED entries = %d; want 1", eventLog.count(CodeCaptureFailed))
	}
}

func TestCaptureTriggerPartialCaptureWarning(t *testing.T) {
	gateway := &countingCapture{result: CaptureResult{PaymentIntentID: "pi_1", AmountReceived: 900, AmountCapturable: 100}}
	svc, eventLog := newTestCaptureService(&fakeCaptureSettings{statusID: statusCapture}, gateway)

	prev := authorizedOrder()
	next := authorizedOrder()
	next.StatusID = statusCapture

	if err := svc.BeforeOrderSave(context.Background(), prev, next); err != nil {
		t.Fatalf("BeforeOrderSave returned %v", err)
	}
	if eventLog.count(CodePartialCapture) != 1 {
		t.Errorf("PARTIAL_CAPTURE entries = %d; want 1", eventLog.count(CodePartialCapture))
	}
	if len(eventLog.entries) > 0 && eventLog.entries[0].severity != models.SeverityWarning {
		t.Errorf("partial capture severity = %s; want warning", eventLog.entries[0].severity)
	}
}

func TestCaptureTriggerSecretKeyMissing(t *testing.T) {
	gateway := &countingCapture{err: ErrSecretKeyMissing}
	svc, eventLog := newTestCaptureService(&fakeCaptureSettings{statusID: statusCapture}, gateway)

	prev := authorizedOrder()
	next := authorizedOrder()
	next.StatusID = statusCapture

	if err := svc.BeforeOrderSave(context.Background(), prev, next); err != nil {
		t.Fatalf("BeforeOrderSave returned %v", err)
	}
	if eventLog.count(CodeSecretKeyMissing) != 1 {
		t.Errorf("SECRET_KEY_MISSING entries = %d; want 1", eventLog.count(CodeSecretKeyMissing))
	}
	if eventLog.count(CodeCaptureFailed) != 0 {
		t.Errorf("CAPTURE_FAILED entries = %d; want 0 (misconfiguration has its own code)", eventLog.count(CodeCaptureFailed))
	}
}

func TestCaptureTriggerFullCaptureLogsInfo(t *testing.T) {
	gateway := &countingCapture{result: CaptureResult{PaymentIntentID: "pi_1", AmountReceived: 1000}}
	svc, eventLog := newTestCaptureService(&fakeCaptureSettings{statusID: statusCapture}, gateway)

	prev := authorizedOrder()
	next := authorizedOrder()
	next.StatusID = statusCapture

	if err := svc.BeforeOrderSave(context.Background(), prev, next); err != nil {
		t.Fatalf("BeforeOrderSave returned %v", err)
	}
	if eventLog.count(CodeCaptureSucceeded) != 1 {
		t.Fatalf("CAPTURE_SUCCEEDED entries = %d; want 1", eventLog.count(CodeCaptureSucceeded))
	}
	if eventLog.entries[0].severity != models.SeverityInfo {
		t.Errorf("full capture severity = %s; want info", eventLog.entries[0].severity)
	}
}

func TestCaptureTriggerFiresOncePerLifecycle(t *testing.T) {
	gateway := &countingCapture{result: CaptureResult{PaymentIntentID: "pi_1", AmountReceived: 1000}}
	svc, eventLog := newTestCaptureService(&fakeCaptureSettings{statusID: statusCapture}, gateway)

	// The qualifying transition.
	prev := authorizedOrder()
	next := authorizedOrder()
	next.StatusID = statusCapture
	if err := svc.BeforeOrderSave(context.Background(), prev, next); err != nil {
		t.Fatalf("BeforeOrderSave returned %v", err)
	}

	// A later write of the same order in the capture status: the prior
	// persisted status is now the capture status, so the gate stays closed
	// and the skipped transition is reported instead.
	prev2 := authorizedOrder()
	prev2.StatusID = statusCapture
	next2 := authorizedOrder()
	next2.StatusID = statusCapture
	if err := svc.BeforeOrderSave(context.Background(), prev2, next2); err != nil {
		t.Fatalf("BeforeOrderSave returned %v", err)
	}

	if gateway.calls != 1 {
		t.Errorf("capture calls = %d; want exactly 1", gateway.calls)
	}
	if eventLog.count(CodePaymentNotApproved) != 1 {
		t.Errorf("PAYMENT_NOT_APPROVED entries = %d; want 1 (from the repeat write)", eventLog.count(CodePaymentNotApproved))
	}
}
