package services

import (
	"context"
	"net/http"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/payments"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

// ShippingQuote is the outcome of resolving shipping for one cart value and
// destination.
type ShippingQuote struct {
	Cost         int64
	RuleID       string
	FreeShipping bool
	Warnings     []string
}

// ShippingService resolves a shipping cost for a cart value and destination
// state against the active rule set.
type ShippingService interface {
	Quote(ctx context.Context, cartValue int64, state string) (ShippingQuote, error)
}

// CouponQuote reports the discount a coupon would grant on a given total.
type CouponQuote struct {
	Coupon   domain.Coupon
	Discount int64
}

// CouponService validates discount codes and manages their redemption
// counters. Apply must be called inside a unit-of-work transaction together
// with the order insert; Release compensates a redemption whose order never
// reached the gateway.
type CouponService interface {
	Validate(ctx context.Context, code string, orderTotal int64, userEmail string) (CouponQuote, error)
	Apply(ctx context.Context, couponID string, userEmail string) error
	Release(ctx context.Context, couponID string, userEmail string) error
}

// PriceCartCommand carries everything needed to price a cart. CouponCode and
// UserEmail are optional; pricing without them simply skips the discount.
type PriceCartCommand struct {
	Lines         []domain.CartLine
	ShippingState string
	CouponCode    string
	UserEmail     string
}

// PricingEngine turns cart lines into a full monetary breakdown. It reads
// slab and shipping configuration but never writes, so it is safe to rerun
// for previews and for the final server-side calculation.
type PricingEngine interface {
	PriceCart(ctx context.Context, cmd PriceCartCommand) (domain.PricingBreakdown, error)
}

// CheckoutCommand creates an order from the given lines. Client-side totals
// are never part of the command: the engine reprices everything server-side.
type CheckoutCommand struct {
	UserEmail     string
	Lines         []domain.CartLine
	ShippingState string
	CouponCode    string
	PaymentMethod string
	Notes         map[string]string
}

// CheckoutResult returns the persisted order and the gateway data the client
// needs to complete payment.
type CheckoutResult struct {
	Order   domain.Order
	Payment payments.CreatePaymentResult
}

// VerifyPaymentCommand carries the client-side gateway callback parameters.
type VerifyPaymentCommand struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// WebhookOutcome summarises what a webhook delivery did to order state.
type WebhookOutcome struct {
	OrderID     string
	OrderNumber string
	EventType   payments.EventType
	// Applied is false when the delivery was a duplicate, unknown, or
	// intentionally ignored.
	Applied     bool
	NeedsReview bool
}

// OrderService owns the order and payment state machines. It is the only
// component that mutates persisted orders.
type OrderService interface {
	Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error)
	VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) (domain.Order, error)
	HandleWebhook(ctx context.Context, gateway string, body []byte, headers http.Header) (WebhookOutcome, error)
	GetByNumber(ctx context.Context, orderNumber string) (domain.Order, error)
	List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	TransitionStatus(ctx context.Context, orderNumber string, next domain.OrderStatus, reason string) (domain.Order, error)
	InitiateRefund(ctx context.Context, orderNumber string, amount int64) (domain.Order, error)
}

// CartService stores and retrieves the per-user cart used by checkout.
type CartService interface {
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Get(ctx context.Context, userEmail string) (domain.Cart, error)
	Clear(ctx context.Context, userEmail string) error
}
