package domain

// PricingBreakdown captures the aggregated monetary results of pricing a cart.
// All amounts are minor units. Total = Subtotal - CouponDiscount + GST +
// Shipping, floored at zero.
type PricingBreakdown struct {
	Subtotal       int64
	GST            int64
	Shipping       int64
	CouponID       string
	CouponCode     string
	CouponDiscount int64
	Total          int64
	Lines          []LinePricing
	ShippingRuleID string
	FreeShipping   bool
	Warnings       []string
}

// LinePricing stores the per-line pricing outputs after slab and GST
// resolution. EffectiveUnitPrice is the slab-adjusted unit price including
// variant modifiers; GST is rounded per line.
type LinePricing struct {
	ProductID          string
	Quantity           int
	BaseUnitPrice      int64
	EffectiveUnitPrice int64
	SlabID             string
	SlabDiscount       int64
	Subtotal           int64
	GSTRate            float64
	GSTAmount          int64
}
