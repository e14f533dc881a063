package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/payments"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
)

func TestWebhookAcknowledgesAppliedEvent(t *testing.T) {
	orders := &stubOrderService{webhookOutcome: services.WebhookOutcome{
		OrderID:     "ord_abc",
		OrderNumber: "SARA-202601-0042",
		EventType:   payments.EventPaymentSucceeded,
		Applied:     true,
	}}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	body := `{"event": "payment.captured"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/razorpay", strings.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "sig")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if orders.webhookGateway != "razorpay" {
		t.Fatalf("expected razorpay, got %q", orders.webhookGateway)
	}
	if string(orders.webhookBody) != body {
		t.Fatalf("expected raw body forwarded, got %q", orders.webhookBody)
	}

	payload := decodeEnvelope(t, rec)
	if payload["received"] != true || payload["applied"] != true {
		t.Fatalf("unexpected ack payload: %v", payload)
	}
	if payload["orderNumber"] != "SARA-202601-0042" {
		t.Fatalf("expected order number, got %v", payload["orderNumber"])
	}
}

func TestWebhookDuplicateStillAcknowledged(t *testing.T) {
	orders := &stubOrderService{webhookOutcome: services.WebhookOutcome{
		OrderNumber: "SARA-202601-0042",
		EventType:   payments.EventPaymentSucceeded,
		Applied:     false,
	}}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/razorpay", strings.NewReader(`{"event": "payment.captured"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate delivery, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	if payload["applied"] != false {
		t.Fatalf("expected applied false, got %v", payload["applied"])
	}
}

func TestWebhookBadSignatureRejected(t *testing.T) {
	orders := &stubOrderService{webhookErr: services.ErrPaymentRejected}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/razorpay", strings.NewReader(`{"event": "payment.captured"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	if payload["error"] != "invalid_signature" {
		t.Fatalf("expected invalid_signature, got %v", payload["error"])
	}
}

func TestWebhookUnknownGatewayRejected(t *testing.T) {
	orders := &stubOrderService{webhookErr: services.ErrOrderInvalidInput}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paypal", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhookEmptyBodyRejected(t *testing.T) {
	orders := &stubOrderService{}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/razorpay", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if orders.webhookBody != nil {
		t.Fatal("empty body must not reach the order service")
	}
}
