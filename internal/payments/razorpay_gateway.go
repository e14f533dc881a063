package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

const razorpaySignatureHeader = "X-Razorpay-Signature"

type razorpayOrderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayPaymentAPI interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayClients struct {
	orders   razorpayOrderAPI
	payments razorpayPaymentAPI
}

// RazorpayGatewayConfig configures the RazorpayGateway.
type RazorpayGatewayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
	Logger        Logger
	Clients       *razorpayClients
}

// RazorpayGateway implements the Gateway contract over the Razorpay Orders API.
type RazorpayGateway struct {
	api           razorpayClients
	keyID         string
	keySecret     string
	webhookSecret string
	logger        Logger
}

// NewRazorpayGateway constructs a Razorpay Gateway using the given configuration.
func NewRazorpayGateway(cfg RazorpayGatewayConfig) (*RazorpayGateway, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if (keyID == "" || keySecret == "") && cfg.Clients == nil {
		return nil, errors.New("razorpay: key id and secret are required")
	}

	var clients razorpayClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		rc := razorpay.NewClient(keyID, keySecret)
		if cfg.Timeout > 0 {
			rc.SetTimeout(int16(cfg.Timeout / time.Second))
		}
		clients = razorpayClients{orders: rc.Order, payments: rc.Payment}
	}
	if clients.orders == nil || clients.payments == nil {
		return nil, errors.New("razorpay: incomplete client configuration")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &RazorpayGateway{
		api:           clients,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		logger:        logger,
	}, nil
}

// Name identifies the gateway in registry lookups and order records.
func (g *RazorpayGateway) Name() string { return GatewayNameRazorpay }

// CheckEligibility limits Razorpay to domestic orders.
func (g *RazorpayGateway) CheckEligibility(country string, _ int64) error {
	if NormalizeCountry(country) != DefaultCountry {
		return fmt.Errorf("%w: razorpay only serves %s", ErrNotEligible, DefaultCountry)
	}
	return nil
}

// CreatePayment creates a Razorpay order for the checkout amount.
func (g *RazorpayGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResult, error) {
	if g == nil {
		return CreatePaymentResult{}, errors.New("razorpay: gateway is nil")
	}
	if req.Amount <= 0 {
		return CreatePaymentResult{}, errors.New("razorpay: amount must be positive")
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "INR"
	}

	notes := map[string]interface{}{
		"order_id": req.OrderID,
		"email":    req.CustomerEmail,
	}
	for k, v := range req.Notes {
		notes[k] = v
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": currency,
		"receipt":  req.OrderNumber,
		"notes":    notes,
	}

	body, err := g.api.orders.Create(data, nil)
	if err != nil {
		return CreatePaymentResult{}, fmt.Errorf("razorpay: create order: %w", err)
	}

	gatewayOrderID, _ := body["id"].(string)
	if gatewayOrderID == "" {
		return CreatePaymentResult{}, errors.New("razorpay: order response missing id")
	}

	g.logger(ctx, "payments.razorpay.order.created", map[string]any{
		"gatewayOrderId": gatewayOrderID,
		"orderId":        req.OrderID,
		"amount":         req.Amount,
	})

	return CreatePaymentResult{
		Gateway:        g.Name(),
		GatewayOrderID: gatewayOrderID,
		KeyID:          g.keyID,
		Raw:            body,
	}, nil
}

// VerifyPayment checks the checkout callback signature computed over
// "<order_id>|<payment_id>".
func (g *RazorpayGateway) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) error {
	if g == nil {
		return errors.New("razorpay: gateway is nil")
	}
	if strings.TrimSpace(req.GatewayOrderID) == "" || strings.TrimSpace(req.GatewayPaymentID) == "" || strings.TrimSpace(req.Signature) == "" {
		return fmt.Errorf("%w: missing callback parameters", ErrSignatureMismatch)
	}

	params := map[string]interface{}{
		"razorpay_order_id":   req.GatewayOrderID,
		"razorpay_payment_id": req.GatewayPaymentID,
	}
	if !utils.VerifyPaymentSignature(params, req.Signature, g.keySecret) {
		g.logger(ctx, "payments.razorpay.verify.failed", map[string]any{
			"gatewayOrderId": req.GatewayOrderID,
		})
		return ErrSignatureMismatch
	}
	return nil
}

// ParseWebhookEvent verifies and normalises a Razorpay webhook notification.
// With no webhook secret configured the event is parsed but flagged unverified.
func (g *RazorpayGateway) ParseWebhookEvent(ctx context.Context, body []byte, headers http.Header) (WebhookEvent, error) {
	if g == nil {
		return WebhookEvent{}, errors.New("razorpay: gateway is nil")
	}

	verified := false
	if g.webhookSecret != "" {
		signature := strings.TrimSpace(headers.Get(razorpaySignatureHeader))
		if signature == "" || !utils.VerifyWebhookSignature(string(body), signature, g.webhookSecret) {
			return WebhookEvent{}, ErrSignatureMismatch
		}
		verified = true
	} else {
		g.logger(ctx, "payments.razorpay.webhook.unverified", map[string]any{
			"reason": "webhook secret not configured",
		})
	}

	var payload struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Amount  int64  `json:"amount"`
					Status  string `json:"status"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookEvent{}, fmt.Errorf("razorpay: decode webhook: %w", err)
	}

	raw := map[string]any{}
	_ = json.Unmarshal(body, &raw)

	event := WebhookEvent{
		GatewayOrderID: payload.Payload.Payment.Entity.OrderID,
		GatewayTxnID:   payload.Payload.Payment.Entity.ID,
		Amount:         payload.Payload.Payment.Entity.Amount,
		Verified:       verified,
		Raw:            raw,
	}

	switch payload.Event {
	case "payment.captured":
		event.Type = EventPaymentSucceeded
	case "payment.failed":
		event.Type = EventPaymentFailed
	default:
		event.Type = EventIgnored
	}
	return event, nil
}

// Refund returns funds for a captured payment.
func (g *RazorpayGateway) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if g == nil {
		return RefundResult{}, errors.New("razorpay: gateway is nil")
	}
	txnID := strings.TrimSpace(req.GatewayTxnID)
	if txnID == "" {
		return RefundResult{}, errors.New("razorpay: payment id is required")
	}
	if req.Amount <= 0 {
		return RefundResult{}, errors.New("razorpay: refund amount must be positive")
	}

	data := map[string]interface{}{}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	body, err := g.api.payments.Refund(txnID, int(req.Amount), data, nil)
	if err != nil {
		return RefundResult{}, fmt.Errorf("razorpay: refund payment: %w", err)
	}

	refundID, _ := body["id"].(string)
	status := StatusPending
	if s, _ := body["status"].(string); s == "processed" {
		status = StatusRefunded
	} else if s == "failed" {
		status = StatusFailed
	}

	g.logger(ctx, "payments.razorpay.refund.created", map[string]any{
		"paymentId": txnID,
		"refundId":  refundID,
		"amount":    req.Amount,
	})

	return RefundResult{RefundID: refundID, Status: status, Raw: body}, nil
}

var _ Gateway = (*RazorpayGateway)(nil)
var _ EligibilityChecker = (*RazorpayGateway)(nil)
