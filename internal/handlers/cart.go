package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/httpx"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
)

// CartHandlers exposes cart persistence and price preview endpoints.
type CartHandlers struct {
	carts   services.CartService
	pricing services.PricingEngine
}

// NewCartHandlers constructs cart handlers.
func NewCartHandlers(carts services.CartService, pricing services.PricingEngine) *CartHandlers {
	return &CartHandlers{carts: carts, pricing: pricing}
}

// Routes registers cart endpoints under the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Put("/", h.saveCart)
	r.Delete("/", h.clearCart)
	r.Post("/quote", h.quote)
}

type variantPayload struct {
	Name          string `json:"name"`
	Value         string `json:"value"`
	PriceModifier int64  `json:"priceModifier,omitempty"`
}

type cartLinePayload struct {
	ProductType string           `json:"productType"`
	ProductID   string           `json:"productId"`
	ProductName string           `json:"productName,omitempty"`
	Quantity    int              `json:"quantity"`
	UnitPrice   int64            `json:"unitPrice"`
	GSTRate     float64          `json:"gstRate"`
	Variants    []variantPayload `json:"variants,omitempty"`
	DesignID    string           `json:"designId,omitempty"`
	FabricID    string           `json:"fabricId,omitempty"`
}

type cartPayload struct {
	UserEmail string            `json:"userEmail"`
	Lines     []cartLinePayload `json:"lines"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
}

type quoteRequest struct {
	UserEmail     string            `json:"userEmail,omitempty"`
	Lines         []cartLinePayload `json:"lines,omitempty"`
	ShippingState string            `json:"shippingState,omitempty"`
	CouponCode    string            `json:"couponCode,omitempty"`
}

type linePricingPayload struct {
	ProductID          string  `json:"productId"`
	Quantity           int     `json:"quantity"`
	BaseUnitPrice      int64   `json:"baseUnitPrice"`
	EffectiveUnitPrice int64   `json:"effectiveUnitPrice"`
	SlabID             string  `json:"slabId,omitempty"`
	SlabDiscount       int64   `json:"slabDiscount,omitempty"`
	Subtotal           int64   `json:"subtotal"`
	GSTRate            float64 `json:"gstRate"`
	GSTAmount          int64   `json:"gstAmount"`
}

type pricingPayload struct {
	Subtotal       int64                `json:"subtotal"`
	GST            int64                `json:"gst"`
	Shipping       int64                `json:"shipping"`
	CouponCode     string               `json:"couponCode,omitempty"`
	CouponDiscount int64                `json:"couponDiscount"`
	Total          int64                `json:"total"`
	FreeShipping   bool                 `json:"freeShipping"`
	Lines          []linePricingPayload `json:"lines"`
	Warnings       []string             `json:"warnings,omitempty"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := customerEmail(r, r.URL.Query().Get("email"))
	if email == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer email is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.Get(ctx, email)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartToPayload(cart))
}

func (h *CartHandlers) saveCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req cartPayload
	if !decodeJSONBody(w, r, &req) {
		return
	}

	cart := domain.Cart{
		UserEmail: customerEmail(r, req.UserEmail),
		Lines:     linesToDomain(req.Lines),
	}
	saved, err := h.carts.Save(ctx, cart)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartToPayload(saved))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := customerEmail(r, r.URL.Query().Get("email"))
	if email == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer email is required", http.StatusBadRequest))
		return
	}
	if err := h.carts.Clear(ctx, email); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// quote prices the submitted lines, or the stored cart when none are sent.
// Pricing is a pure preview: no coupon slot is consumed here.
func (h *CartHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req quoteRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	email := customerEmail(r, req.UserEmail)
	lines := linesToDomain(req.Lines)
	if len(lines) == 0 {
		if email == "" {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "lines or a customer email are required", http.StatusBadRequest))
			return
		}
		cart, err := h.carts.Get(ctx, email)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		lines = cart.Lines
	}

	breakdown, err := h.pricing.PriceCart(ctx, services.PriceCartCommand{
		Lines:         lines,
		ShippingState: req.ShippingState,
		CouponCode:    req.CouponCode,
		UserEmail:     email,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdownToPayload(breakdown))
}

func linesToDomain(payloads []cartLinePayload) []domain.CartLine {
	if len(payloads) == 0 {
		return nil
	}
	lines := make([]domain.CartLine, 0, len(payloads))
	for _, p := range payloads {
		line := domain.CartLine{
			ProductType: domain.ProductType(strings.ToUpper(strings.TrimSpace(p.ProductType))),
			ProductID:   strings.TrimSpace(p.ProductID),
			ProductName: strings.TrimSpace(p.ProductName),
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
			GSTRate:     p.GSTRate,
			DesignID:    strings.TrimSpace(p.DesignID),
			FabricID:    strings.TrimSpace(p.FabricID),
		}
		for _, v := range p.Variants {
			line.Variants = append(line.Variants, domain.VariantSelection{
				Name:          v.Name,
				Value:         v.Value,
				PriceModifier: v.PriceModifier,
			})
		}
		lines = append(lines, line)
	}
	return lines
}

func linesToPayload(lines []domain.CartLine) []cartLinePayload {
	payloads := make([]cartLinePayload, 0, len(lines))
	for _, line := range lines {
		p := cartLinePayload{
			ProductType: string(line.ProductType),
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			GSTRate:     line.GSTRate,
			DesignID:    line.DesignID,
			FabricID:    line.FabricID,
		}
		for _, v := range line.Variants {
			p.Variants = append(p.Variants, variantPayload{
				Name:          v.Name,
				Value:         v.Value,
				PriceModifier: v.PriceModifier,
			})
		}
		payloads = append(payloads, p)
	}
	return payloads
}

func cartToPayload(cart domain.Cart) cartPayload {
	payload := cartPayload{
		UserEmail: cart.UserEmail,
		Lines:     linesToPayload(cart.Lines),
	}
	payload.UpdatedAt = formatTime(cart.UpdatedAt)
	return payload
}

func breakdownToPayload(b domain.PricingBreakdown) pricingPayload {
	payload := pricingPayload{
		Subtotal:       b.Subtotal,
		GST:            b.GST,
		Shipping:       b.Shipping,
		CouponCode:     b.CouponCode,
		CouponDiscount: b.CouponDiscount,
		Total:          b.Total,
		FreeShipping:   b.FreeShipping,
		Warnings:       b.Warnings,
		Lines:          make([]linePricingPayload, 0, len(b.Lines)),
	}
	for _, line := range b.Lines {
		payload.Lines = append(payload.Lines, linePricingPayload{
			ProductID:          line.ProductID,
			Quantity:           line.Quantity,
			BaseUnitPrice:      line.BaseUnitPrice,
			EffectiveUnitPrice: line.EffectiveUnitPrice,
			SlabID:             line.SlabID,
			SlabDiscount:       line.SlabDiscount,
			Subtotal:           line.Subtotal,
			GSTRate:            line.GSTRate,
			GSTAmount:          line.GSTAmount,
		})
	}
	return payload
}
