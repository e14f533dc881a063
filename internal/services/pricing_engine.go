package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

var (
	// ErrPricingInvalidInput signals the caller provided invalid data.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
)

// PricingEngineDeps bundles collaborators required to construct a PricingEngine.
type PricingEngineDeps struct {
	Slabs    repositories.PricingSlabRepository
	Shipping ShippingService
	Coupons  CouponService
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type pricingEngine struct {
	slabs    repositories.PricingSlabRepository
	shipping ShippingService
	coupons  CouponService
	logger   func(context.Context, string, map[string]any)
}

// NewPricingEngine wires dependencies into a concrete PricingEngine implementation.
func NewPricingEngine(deps PricingEngineDeps) (PricingEngine, error) {
	if deps.Slabs == nil {
		return nil, errors.New("pricing engine: slab repository is required")
	}
	if deps.Shipping == nil {
		return nil, errors.New("pricing engine: shipping service is required")
	}
	if deps.Coupons == nil {
		return nil, errors.New("pricing engine: coupon service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &pricingEngine{
		slabs:    deps.Slabs,
		shipping: deps.Shipping,
		coupons:  deps.Coupons,
		logger:   logger,
	}, nil
}

// PriceCart prices the cart lines end to end: slab-adjusted unit prices,
// per-line GST rounded half-up, shipping resolved against subtotal plus GST,
// and the coupon discount applied to the subtotal before tax and shipping.
// The engine performs no writes, so callers may rerun it freely.
func (e *pricingEngine) PriceCart(ctx context.Context, cmd PriceCartCommand) (domain.PricingBreakdown, error) {
	if len(cmd.Lines) == 0 {
		return domain.PricingBreakdown{}, fmt.Errorf("%w: cart must contain at least one line", ErrPricingInvalidInput)
	}

	breakdown := domain.PricingBreakdown{
		Lines: make([]domain.LinePricing, 0, len(cmd.Lines)),
	}

	for i, line := range cmd.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return domain.PricingBreakdown{}, fmt.Errorf("%w: line %d is missing a product id", ErrPricingInvalidInput, i)
		}
		if line.Quantity < 1 {
			return domain.PricingBreakdown{}, fmt.Errorf("%w: line %d quantity must be at least 1", ErrPricingInvalidInput, i)
		}
		if line.UnitPrice < 0 {
			return domain.PricingBreakdown{}, fmt.Errorf("%w: line %d unit price must not be negative", ErrPricingInvalidInput, i)
		}
		if line.GSTRate < 0 || line.GSTRate > 100 {
			return domain.PricingBreakdown{}, fmt.Errorf("%w: line %d gst rate out of range", ErrPricingInvalidInput, i)
		}

		priced, err := e.priceLine(ctx, line)
		if err != nil {
			return domain.PricingBreakdown{}, err
		}
		breakdown.Lines = append(breakdown.Lines, priced.pricing)
		breakdown.Warnings = append(breakdown.Warnings, priced.warnings...)
		breakdown.Subtotal += priced.pricing.Subtotal
		breakdown.GST += priced.pricing.GSTAmount
	}

	// Shipping eligibility is computed against subtotal plus GST, matching
	// the store's established policy.
	shipping, err := e.shipping.Quote(ctx, breakdown.Subtotal+breakdown.GST, cmd.ShippingState)
	if err != nil {
		return domain.PricingBreakdown{}, err
	}
	breakdown.Shipping = shipping.Cost
	breakdown.ShippingRuleID = shipping.RuleID
	breakdown.FreeShipping = shipping.FreeShipping
	breakdown.Warnings = append(breakdown.Warnings, shipping.Warnings...)

	if code := strings.TrimSpace(cmd.CouponCode); code != "" {
		quote, err := e.coupons.Validate(ctx, code, breakdown.Subtotal, cmd.UserEmail)
		if err != nil {
			return domain.PricingBreakdown{}, err
		}
		breakdown.CouponID = quote.Coupon.ID
		breakdown.CouponCode = quote.Coupon.Code
		breakdown.CouponDiscount = quote.Discount
	}

	breakdown.Total = domain.ClampNonNegative(
		breakdown.Subtotal - breakdown.CouponDiscount + breakdown.GST + breakdown.Shipping)

	e.logger(ctx, "pricing.cart.priced", map[string]any{
		"lines":    len(breakdown.Lines),
		"subtotal": breakdown.Subtotal,
		"gst":      breakdown.GST,
		"shipping": breakdown.Shipping,
		"discount": breakdown.CouponDiscount,
		"total":    breakdown.Total,
	})
	return breakdown, nil
}

type pricedLine struct {
	pricing  domain.LinePricing
	warnings []string
}

func (e *pricingEngine) priceLine(ctx context.Context, line domain.CartLine) (pricedLine, error) {
	baseUnit := line.UnitPrice
	for _, variant := range line.Variants {
		baseUnit += variant.PriceModifier
	}
	baseUnit = domain.ClampNonNegative(baseUnit)

	pricing := domain.LinePricing{
		ProductID:          line.ProductID,
		Quantity:           line.Quantity,
		BaseUnitPrice:      baseUnit,
		EffectiveUnitPrice: baseUnit,
		GSTRate:            line.GSTRate,
	}

	var warnings []string
	if quantityPriced(line) {
		slabs, err := e.slabs.ListByProduct(ctx, line.ProductID)
		if err != nil {
			return pricedLine{}, err
		}
		slab, ok, slabWarnings := SelectSlab(slabs, line.Quantity)
		warnings = append(warnings, slabWarnings...)
		if ok {
			pricing.SlabID = slab.ID
			pricing.EffectiveUnitPrice = SlabUnitPrice(baseUnit, slab)
			pricing.SlabDiscount = (baseUnit - pricing.EffectiveUnitPrice) * int64(line.Quantity)
		}
	}

	pricing.Subtotal = pricing.EffectiveUnitPrice * int64(line.Quantity)
	// GST rounds per line to match line-level tax invoice requirements.
	pricing.GSTAmount = domain.PercentOf(pricing.Subtotal, line.GSTRate)

	return pricedLine{pricing: pricing, warnings: warnings}, nil
}

func quantityPriced(line domain.CartLine) bool {
	return line.ProductType == domain.ProductTypeCustom || strings.TrimSpace(line.FabricID) != ""
}
