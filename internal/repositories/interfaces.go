package repositories

import (
	"context"
	"time"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Orders() OrderRepository
	PaymentAttempts() PaymentAttemptRepository
	Coupons() CouponRepository
	ShippingRules() ShippingRuleRepository
	PricingSlabs() PricingSlabRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CartRepository stores the per-user cart keyed by normalised email.
type CartRepository interface {
	Upsert(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Get(ctx context.Context, userEmail string) (domain.Cart, error)
	Delete(ctx context.Context, userEmail string) error
}

// OrderRepository persists order documents. Orders are inserted once and only
// ever mutated through status transitions; they are never deleted.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// OrderListFilter narrows order listings for customers and back-office views.
type OrderListFilter struct {
	UserEmail     string
	Status        []domain.OrderStatus
	PaymentStatus []domain.PaymentStatus
	Pagination    domain.Pagination
}

// PaymentAttemptRepository stores gateway interaction records beneath an order.
type PaymentAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.PaymentAttempt) error
	Update(ctx context.Context, attempt domain.PaymentAttempt) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.PaymentAttempt, error)
}

// CouponRepository maintains coupon definitions and redemption counters.
//
// ApplyUsage must be invoked inside a UnitOfWork transaction: it re-reads the
// coupon and the per-user usage row, re-validates both limits against the
// current counts, and increments them, so concurrent redemptions of the last
// slot cannot both succeed.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	GetUsage(ctx context.Context, couponID string, userEmail string) (domain.CouponUsage, error)
	ApplyUsage(ctx context.Context, couponID string, userEmail string, now time.Time) error
	ReleaseUsage(ctx context.Context, couponID string, userEmail string, now time.Time) error
}

// ShippingRuleRepository returns the active shipping rule set.
type ShippingRuleRepository interface {
	ListActive(ctx context.Context) ([]domain.ShippingRule, error)
}

// PricingSlabRepository returns quantity discount tiers per product.
type PricingSlabRepository interface {
	ListByProduct(ctx context.Context, productID string) ([]domain.PricingSlab, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
