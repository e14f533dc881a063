package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Status enumerates the normalised payment states shared across gateways.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or gateway confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the gateway reports the payment as successfully captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the gateway reports a failure and no further action is possible.
	StatusFailed Status = "failed"
	// StatusRefunded indicates the payment has been refunded.
	StatusRefunded Status = "refunded"
)

// EventType classifies webhook notifications after gateway-specific parsing.
type EventType string

const (
	// EventPaymentSucceeded reports a captured payment.
	EventPaymentSucceeded EventType = "payment.succeeded"
	// EventPaymentFailed reports a terminal payment failure.
	EventPaymentFailed EventType = "payment.failed"
	// EventIgnored covers event kinds the reconciler does not act on.
	EventIgnored EventType = "ignored"
)

// Registered gateway names.
const (
	GatewayNameRazorpay = "razorpay"
	GatewayNameStripe   = "stripe"
	GatewayNameCOD      = "cod"
)

// DefaultCountry is the storefront's home market.
const DefaultCountry = "IN"

// NormalizeCountry upper-cases a country code, defaulting an empty value to
// the home market.
func NormalizeCountry(country string) string {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return DefaultCountry
	}
	return country
}

var (
	// ErrUnsupportedGateway is returned when the registry cannot locate a gateway.
	ErrUnsupportedGateway = errors.New("payments: unsupported gateway")
	// ErrSignatureMismatch is returned when a callback or webhook signature fails verification.
	ErrSignatureMismatch = errors.New("payments: signature verification failed")
	// ErrNotEligible is returned when a gateway refuses the order, for example COD above its cap.
	ErrNotEligible = errors.New("payments: gateway not eligible for this order")
)

// Logger defines the logging contract for gateway operations.
type Logger func(ctx context.Context, event string, fields map[string]any)

// CreatePaymentRequest carries the order facts a gateway needs to start a payment.
type CreatePaymentRequest struct {
	OrderID       string
	OrderNumber   string
	Amount        int64
	Currency      string
	CustomerEmail string
	Notes         map[string]string
}

// CreatePaymentResult is what the client needs to continue the payment flow.
type CreatePaymentResult struct {
	Gateway        string
	GatewayOrderID string
	// KeyID is the publishable key the browser SDK needs (Razorpay).
	KeyID string
	// ClientSecret is the intent secret the browser SDK needs (Stripe).
	ClientSecret string
	Raw          map[string]any
}

// VerifyPaymentRequest carries the client-side callback parameters.
type VerifyPaymentRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// WebhookEvent is the normalised form of a gateway notification.
type WebhookEvent struct {
	Type           EventType
	GatewayOrderID string
	GatewayTxnID   string
	Amount         int64
	// Verified is false when the webhook secret was not configured and the
	// signature could not be checked. A bad signature is an error, not an
	// unverified event.
	Verified bool
	Raw      map[string]any
}

// RefundRequest asks the gateway to return funds for a captured payment.
// GatewayOrderID carries the gateway's own order reference (Stripe refunds
// address the payment intent, not the charge); GatewayTxnID carries the
// captured payment reference used by gateways that refund per payment.
type RefundRequest struct {
	GatewayOrderID string
	GatewayTxnID   string
	Amount         int64
	Notes          map[string]string
}

// RefundResult reports the gateway's view of the refund.
type RefundResult struct {
	RefundID string
	Status   Status
	Raw      map[string]any
}

// Gateway is the contract payment adapters implement.
type Gateway interface {
	Name() string
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResult, error)
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) error
	ParseWebhookEvent(ctx context.Context, body []byte, headers http.Header) (WebhookEvent, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
}

// EligibilityChecker is implemented by gateways that refuse some orders up
// front, such as COD above a value cap or a processor that only serves one
// market.
type EligibilityChecker interface {
	CheckEligibility(country string, amount int64) error
}

// MethodInfo describes one payment method offered to a customer.
type MethodInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Registry coordinates gateway selection and exposes method availability.
type Registry struct {
	gateways       map[string]Gateway
	order          []string
	defaultGateway string
}

// RegistryOption configures optional behaviour when building a Registry.
type RegistryOption func(*Registry)

// WithDefaultGateway overrides the gateway used when the caller names none.
func WithDefaultGateway(name string) RegistryOption {
	return func(r *Registry) {
		r.defaultGateway = strings.ToLower(strings.TrimSpace(name))
	}
}

// NewRegistry constructs a Registry over the supplied gateways.
func NewRegistry(gateways []Gateway, opts ...RegistryOption) (*Registry, error) {
	if len(gateways) == 0 {
		return nil, errors.New("payments: at least one gateway is required")
	}
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, gw := range gateways {
		if gw == nil {
			return nil, errors.New("payments: nil gateway registration")
		}
		key := strings.ToLower(strings.TrimSpace(gw.Name()))
		if key == "" {
			return nil, errors.New("payments: gateway with empty name")
		}
		if _, exists := r.gateways[key]; exists {
			return nil, fmt.Errorf("payments: duplicate gateway %q", key)
		}
		r.gateways[key] = gw
		r.order = append(r.order, key)
	}
	r.defaultGateway = r.order[0]
	for _, opt := range opts {
		opt(r)
	}
	if _, ok := r.gateways[r.defaultGateway]; !ok {
		return nil, fmt.Errorf("payments: default gateway %q not registered", r.defaultGateway)
	}
	return r, nil
}

// Resolve returns the gateway for the given name, or the default when the
// name is empty.
func (r *Registry) Resolve(name string) (Gateway, error) {
	if r == nil || len(r.gateways) == 0 {
		return nil, errors.New("payments: no gateways registered")
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = r.defaultGateway
	}
	gw, ok := r.gateways[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, key)
	}
	return gw, nil
}

// AvailableMethods reports each registered gateway's availability for the
// given destination country and order amount, in registration order.
func (r *Registry) AvailableMethods(country string, amount int64) []MethodInfo {
	if r == nil {
		return nil
	}
	country = NormalizeCountry(country)
	methods := make([]MethodInfo, 0, len(r.order))
	for _, key := range r.order {
		info := MethodInfo{Name: key, Available: true}
		if checker, ok := r.gateways[key].(EligibilityChecker); ok {
			if err := checker.CheckEligibility(country, amount); err != nil {
				info.Available = false
				info.Reason = err.Error()
			}
		}
		methods = append(methods, info)
	}
	return methods
}

func noopLogger(context.Context, string, map[string]any) {}
