package domain

import "time"

// ProductType distinguishes how a cart line is priced.
type ProductType string

const (
	ProductTypePlain    ProductType = "PLAIN"
	ProductTypeDesigned ProductType = "DESIGNED"
	ProductTypeDigital  ProductType = "DIGITAL"
	ProductTypeCustom   ProductType = "CUSTOM"
)

// VariantSelection records one chosen product option and its price effect.
type VariantSelection struct {
	Name          string
	Value         string
	PriceModifier int64
}

// CartLine is a single cart entry with the resolved unit price and GST rate
// captured at the time the product service handed it over.
type CartLine struct {
	ProductType ProductType
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   int64
	GSTRate     float64
	Variants    []VariantSelection
	DesignID    string
	FabricID    string
}

// Cart is keyed by user email and ephemeral until converted to an order.
type Cart struct {
	UserEmail string
	Lines     []CartLine
	UpdatedAt time.Time
}

// ShippingScope declares whether a rule applies nationwide or to one state.
type ShippingScope string

const (
	ShippingScopeAllIndia  ShippingScope = "ALL_INDIA"
	ShippingScopeStateWise ShippingScope = "STATE_WISE"
)

// ShippingCalculation selects how a rule computes its cost.
type ShippingCalculation string

const (
	ShippingCalcFlat       ShippingCalculation = "FLAT"
	ShippingCalcRangeBased ShippingCalculation = "RANGE_BASED"
)

// ShippingRange is one cart-value band of a RANGE_BASED rule. MaxCartValue
// is nil for the open-ended tail band.
type ShippingRange struct {
	MinCartValue  int64
	MaxCartValue  *int64
	ShippingPrice int64
	DisplayOrder  int
}

// ShippingRule selects a shipping cost for a cart value and destination.
// Ranges of one rule must not overlap.
type ShippingRule struct {
	ID                string
	Scope             ShippingScope
	State             string
	Calculation       ShippingCalculation
	FlatPrice         int64
	FreeShippingAbove *int64
	Priority          int
	IsActive          bool
	Ranges            []ShippingRange
}

// CouponType selects the discount formula.
type CouponType string

const (
	CouponTypePercentage CouponType = "PERCENTAGE"
	CouponTypeFixed      CouponType = "FIXED"
)

// Coupon is a discount code. UsageLimit and PerUserUsageLimit are nil when
// unlimited; UsedCount is monotonic and the sum of all CouponUsage counts
// for a coupon never exceeds UsageLimit.
type Coupon struct {
	ID                string
	Code              string
	Type              CouponType
	Value             float64
	MinOrder          int64
	MaxDiscount       *int64
	UsageLimit        *int
	PerUserUsageLimit *int
	UsedCount         int
	ValidFrom         time.Time
	ValidUntil        time.Time
	IsActive          bool
}

// CouponUsage tracks per-user redemptions; one row per (coupon, user email).
type CouponUsage struct {
	CouponID  string
	UserEmail string
	Count     int
	UpdatedAt time.Time
}

// SlabDiscountType selects how a pricing slab adjusts the unit price.
type SlabDiscountType string

const (
	SlabDiscountFixedAmount SlabDiscountType = "FIXED_AMOUNT"
	SlabDiscountPercentage  SlabDiscountType = "PERCENTAGE"
)

// PricingSlab is a quantity-range discount tier for a quantity-priced
// product. MaxQuantity is nil for the open-ended tail. A quantity must match
// at most one slab of a product.
type PricingSlab struct {
	ID            string
	ProductID     string
	MinQuantity   int
	MaxQuantity   *int
	DiscountType  SlabDiscountType
	DiscountValue float64
	DisplayOrder  int
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "PLACED"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// PaymentStatus is orthogonal to OrderStatus.
type PaymentStatus string

const (
	PaymentStatusPending         PaymentStatus = "PENDING"
	PaymentStatusPaid            PaymentStatus = "PAID"
	PaymentStatusFailed          PaymentStatus = "FAILED"
	PaymentStatusRefundInitiated PaymentStatus = "REFUND_INITIATED"
	PaymentStatusRefundCompleted PaymentStatus = "REFUND_COMPLETED"
)

// OrderItem is an immutable snapshot of a CartLine taken at order creation.
// Prices are never recomputed from live product data afterwards.
type OrderItem struct {
	ProductType  ProductType
	ProductID    string
	ProductName  string
	Quantity     int
	UnitPrice    int64
	SlabDiscount int64
	GSTRate      float64
	GSTAmount    int64
	LineSubtotal int64
	Variants     []VariantSelection
	DesignID     string
	FabricID     string
}

// InvoiceInfo carries external e-invoice metadata, nil until generated.
type InvoiceInfo struct {
	InvoiceID  string
	InvoiceURL string
	IssuedAt   time.Time
}

// Order is created once per checkout and only ever status-transitioned by
// the order service; it is never deleted.
type Order struct {
	ID             string
	OrderNumber    string
	UserEmail      string
	ShippingState  string
	Items          []OrderItem
	Subtotal       int64
	GST            int64
	Shipping       int64
	CouponCode     string
	CouponDiscount int64
	Total          int64
	Status         OrderStatus
	PaymentStatus  PaymentStatus
	PaymentMethod  string
	GatewayOrderID string
	GatewayTxnID   string
	Invoice        *InvoiceInfo
	NeedsReview    bool
	CancelReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
	DeliveredAt    *time.Time
	RefundedAt     *time.Time
}

// PaymentAttemptStatus tracks a single gateway interaction.
type PaymentAttemptStatus string

const (
	PaymentAttemptCreated   PaymentAttemptStatus = "created"
	PaymentAttemptSucceeded PaymentAttemptStatus = "succeeded"
	PaymentAttemptFailed    PaymentAttemptStatus = "failed"
	PaymentAttemptRefunded  PaymentAttemptStatus = "refunded"
)

// PaymentAttempt records one gateway interaction for an order. Multiple
// attempts may exist per order; exactly one may reach succeeded.
type PaymentAttempt struct {
	ID             string
	OrderID        string
	Gateway        string
	GatewayOrderID string
	GatewayTxnID   string
	Status         PaymentAttemptStatus
	RawPayload     map[string]any
	CreatedAt      time.Time
}
