package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

const stripeSignatureHeader = "Stripe-Signature"

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeClients struct {
	intents stripePaymentIntentAPI
	refunds stripeRefundAPI
}

// StripeGatewayConfig configures the StripeGateway.
type StripeGatewayConfig struct {
	APIKey        string
	WebhookSecret string
	Backends      *stripe.Backends
	Logger        Logger
	Clients       *stripeClients
}

// StripeGateway implements the Gateway contract over Stripe Payment Intents.
type StripeGateway struct {
	api           stripeClients
	webhookSecret string
	logger        Logger
}

// NewStripeGateway constructs a Stripe Gateway using the given configuration.
func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients stripeClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sc := client.New(apiKey, cfg.Backends)
		clients = stripeClients{intents: sc.PaymentIntents, refunds: sc.Refunds}
	}
	if clients.intents == nil || clients.refunds == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &StripeGateway{
		api:           clients,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		logger:        logger,
	}, nil
}

// Name identifies the gateway in registry lookups and order records.
func (g *StripeGateway) Name() string { return GatewayNameStripe }

// CreatePayment creates a Payment Intent for the checkout amount.
func (g *StripeGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResult, error) {
	if g == nil {
		return CreatePaymentResult{}, errors.New("stripe: gateway is nil")
	}
	if req.Amount <= 0 {
		return CreatePaymentResult{}, errors.New("stripe: amount must be positive")
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "inr"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		params.ReceiptEmail = stripe.String(email)
	}
	params.Metadata = map[string]string{
		"order_id":     req.OrderID,
		"order_number": req.OrderNumber,
	}
	for k, v := range req.Notes {
		params.Metadata[k] = v
	}

	intent, err := g.api.intents.New(params)
	if err != nil {
		return CreatePaymentResult{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	g.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": intent.ID,
		"orderId":       req.OrderID,
		"amount":        req.Amount,
	})

	return CreatePaymentResult{
		Gateway:        g.Name(),
		GatewayOrderID: intent.ID,
		ClientSecret:   intent.ClientSecret,
		Raw:            stripeRawMap(intent),
	}, nil
}

// VerifyPayment confirms the intent reached the succeeded state. Stripe has
// no client callback signature; verification is a server-side lookup.
func (g *StripeGateway) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) error {
	if g == nil {
		return errors.New("stripe: gateway is nil")
	}
	intentID := strings.TrimSpace(req.GatewayOrderID)
	if intentID == "" {
		return fmt.Errorf("%w: missing payment intent id", ErrSignatureMismatch)
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := g.api.intents.Get(intentID, params)
	if err != nil {
		return fmt.Errorf("stripe: lookup payment intent: %w", err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: intent status %s", ErrSignatureMismatch, intent.Status)
	}
	return nil
}

// ParseWebhookEvent verifies and normalises a Stripe webhook notification.
// With no webhook secret configured the event is parsed but flagged unverified.
func (g *StripeGateway) ParseWebhookEvent(ctx context.Context, body []byte, headers http.Header) (WebhookEvent, error) {
	if g == nil {
		return WebhookEvent{}, errors.New("stripe: gateway is nil")
	}

	var (
		event    stripe.Event
		verified bool
	)
	if g.webhookSecret != "" {
		constructed, err := webhook.ConstructEvent(body, headers.Get(stripeSignatureHeader), g.webhookSecret)
		if err != nil {
			return WebhookEvent{}, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
		}
		event = constructed
		verified = true
	} else {
		g.logger(ctx, "payments.stripe.webhook.unverified", map[string]any{
			"reason": "webhook secret not configured",
		})
		if err := json.Unmarshal(body, &event); err != nil {
			return WebhookEvent{}, fmt.Errorf("stripe: decode webhook: %w", err)
		}
	}

	raw := map[string]any{}
	_ = json.Unmarshal(body, &raw)

	out := WebhookEvent{Verified: verified, Raw: raw}
	switch event.Type {
	case "payment_intent.succeeded":
		out.Type = EventPaymentSucceeded
	case "payment_intent.payment_failed":
		out.Type = EventPaymentFailed
	default:
		out.Type = EventIgnored
		return out, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return WebhookEvent{}, errors.New("stripe: decode webhook intent: event data is missing")
	}
	var intent struct {
		ID           string `json:"id"`
		Amount       int64  `json:"amount"`
		LatestCharge struct {
			ID string `json:"id"`
		} `json:"latest_charge"`
	}
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return WebhookEvent{}, fmt.Errorf("stripe: decode webhook intent: %w", err)
	}
	out.GatewayOrderID = intent.ID
	out.GatewayTxnID = intent.LatestCharge.ID
	if out.GatewayTxnID == "" {
		out.GatewayTxnID = intent.ID
	}
	out.Amount = intent.Amount
	return out, nil
}

// Refund creates a refund against the Payment Intent.
func (g *StripeGateway) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if g == nil {
		return RefundResult{}, errors.New("stripe: gateway is nil")
	}
	intentID := strings.TrimSpace(req.GatewayOrderID)
	if intentID == "" {
		return RefundResult{}, errors.New("stripe: payment intent id is required")
	}
	if req.Amount <= 0 {
		return RefundResult{}, errors.New("stripe: refund amount must be positive")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(req.Amount),
	}
	params.Context = ctx
	if len(req.Notes) > 0 {
		params.Metadata = make(map[string]string, len(req.Notes))
		for k, v := range req.Notes {
			params.Metadata[k] = v
		}
	}

	refund, err := g.api.refunds.New(params)
	if err != nil {
		return RefundResult{}, fmt.Errorf("stripe: refund payment intent: %w", err)
	}

	status := StatusPending
	switch refund.Status {
	case stripe.RefundStatusSucceeded:
		status = StatusRefunded
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		status = StatusFailed
	}

	g.logger(ctx, "payments.stripe.refund.created", map[string]any{
		"paymentIntent": intentID,
		"refundId":      refund.ID,
		"amount":        req.Amount,
	})

	return RefundResult{RefundID: refund.ID, Status: status, Raw: stripeRawMap(refund)}, nil
}

func stripeRawMap(v any) map[string]any {
	raw := map[string]any{}
	if data, err := json.Marshal(v); err == nil {
		_ = json.Unmarshal(data, &raw)
	}
	return raw
}

var _ Gateway = (*StripeGateway)(nil)
