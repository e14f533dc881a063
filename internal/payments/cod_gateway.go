package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
)

// CODGatewayConfig configures the cash-on-delivery gateway.
type CODGatewayConfig struct {
	// MaxOrderValue caps the order total accepted for COD, in paise.
	// Zero means no cap.
	MaxOrderValue int64
	Logger        Logger
}

// CODGateway implements the Gateway contract for cash on delivery. There is
// no external processor: payment stays pending until delivery confirmation.
type CODGateway struct {
	maxOrderValue int64
	logger        Logger
}

// NewCODGateway constructs a cash-on-delivery gateway.
func NewCODGateway(cfg CODGatewayConfig) *CODGateway {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &CODGateway{
		maxOrderValue: cfg.MaxOrderValue,
		logger:        logger,
	}
}

// Name identifies the gateway in registry lookups and order records.
func (g *CODGateway) Name() string { return GatewayNameCOD }

// CheckEligibility refuses COD outside the home market and orders above the
// configured value cap.
func (g *CODGateway) CheckEligibility(country string, amount int64) error {
	if NormalizeCountry(country) != DefaultCountry {
		return fmt.Errorf("%w: cod is only offered in %s", ErrNotEligible, DefaultCountry)
	}
	return g.withinCap(amount)
}

func (g *CODGateway) withinCap(amount int64) error {
	if g.maxOrderValue > 0 && amount > g.maxOrderValue {
		return fmt.Errorf("%w: order total %d exceeds cod limit %d", ErrNotEligible, amount, g.maxOrderValue)
	}
	return nil
}

// CreatePayment records a COD reference; no money moves until delivery.
func (g *CODGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResult, error) {
	if g == nil {
		return CreatePaymentResult{}, errors.New("cod: gateway is nil")
	}
	if req.Amount <= 0 {
		return CreatePaymentResult{}, errors.New("cod: amount must be positive")
	}
	if err := g.withinCap(req.Amount); err != nil {
		return CreatePaymentResult{}, err
	}

	ref := "cod_" + strings.ToLower(ulid.Make().String())

	g.logger(ctx, "payments.cod.accepted", map[string]any{
		"reference": ref,
		"orderId":   req.OrderID,
		"amount":    req.Amount,
	})

	return CreatePaymentResult{
		Gateway:        g.Name(),
		GatewayOrderID: ref,
	}, nil
}

// VerifyPayment is meaningless for COD; there is no client callback to check.
func (g *CODGateway) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) error {
	return errors.New("cod: payment verification is not applicable")
}

// ParseWebhookEvent is meaningless for COD; no processor sends webhooks.
func (g *CODGateway) ParseWebhookEvent(ctx context.Context, body []byte, headers http.Header) (WebhookEvent, error) {
	return WebhookEvent{}, errors.New("cod: webhooks are not applicable")
}

// Refund is a bookkeeping no-op: cash collected on delivery is returned
// through a manual process, so the result is always pending.
func (g *CODGateway) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if g == nil {
		return RefundResult{}, errors.New("cod: gateway is nil")
	}
	g.logger(ctx, "payments.cod.refund.manual", map[string]any{
		"reference": req.GatewayTxnID,
		"amount":    req.Amount,
	})
	return RefundResult{Status: StatusPending}, nil
}

var _ Gateway = (*CODGateway)(nil)
var _ EligibilityChecker = (*CODGateway)(nil)
