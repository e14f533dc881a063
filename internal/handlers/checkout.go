package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/httpx"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/textutil"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
)

// CheckoutHandlers converts carts into orders and settles client-side
// payment callbacks.
type CheckoutHandlers struct {
	orders services.OrderService
	carts  services.CartService
}

// NewCheckoutHandlers constructs checkout handlers. The cart service is
// optional; without it the request body must carry the lines explicitly.
func NewCheckoutHandlers(orders services.OrderService, carts services.CartService) *CheckoutHandlers {
	return &CheckoutHandlers{orders: orders, carts: carts}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.checkout)
	r.Post("/verify", h.verify)
}

type checkoutRequest struct {
	UserEmail     string            `json:"userEmail,omitempty"`
	Lines         []cartLinePayload `json:"lines,omitempty"`
	ShippingState string            `json:"shippingState"`
	CouponCode    string            `json:"couponCode,omitempty"`
	PaymentMethod string            `json:"paymentMethod"`
	Notes         map[string]string `json:"notes,omitempty"`
}

type paymentSessionPayload struct {
	Gateway        string         `json:"gateway"`
	GatewayOrderID string         `json:"gatewayOrderId,omitempty"`
	KeyID          string         `json:"keyId,omitempty"`
	ClientSecret   string         `json:"clientSecret,omitempty"`
	Raw            map[string]any `json:"raw,omitempty"`
}

type checkoutResponse struct {
	Order   orderPayload          `json:"order"`
	Payment paymentSessionPayload `json:"payment"`
}

type verifyRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

func (h *CheckoutHandlers) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req checkoutRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	email := customerEmail(r, req.UserEmail)
	if email == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer email is required", http.StatusBadRequest))
		return
	}

	lines := linesToDomain(req.Lines)
	if len(lines) == 0 && h.carts != nil {
		cart, err := h.carts.Get(ctx, email)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		lines = cart.Lines
	}
	if len(lines) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "nothing to order", http.StatusBadRequest))
		return
	}

	result, err := h.orders.Checkout(ctx, services.CheckoutCommand{
		UserEmail:     email,
		Lines:         lines,
		ShippingState: req.ShippingState,
		CouponCode:    req.CouponCode,
		PaymentMethod: strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
		Notes:         textutil.NormalizeStringMap(req.Notes),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Order: orderToPayload(result.Order),
		Payment: paymentSessionPayload{
			Gateway:        result.Payment.Gateway,
			GatewayOrderID: result.Payment.GatewayOrderID,
			KeyID:          result.Payment.KeyID,
			ClientSecret:   result.Payment.ClientSecret,
			Raw:            result.Payment.Raw,
		},
	})
}

func (h *CheckoutHandlers) verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req verifyRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	// Signature presence is the gateway's call: Razorpay callbacks carry
	// one, Stripe verification is a server-side lookup without one.
	if req.GatewayOrderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "gatewayOrderId is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.VerifyPayment(ctx, services.VerifyPaymentCommand{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToPayload(order))
}

type orderItemPayload struct {
	ProductType  string           `json:"productType"`
	ProductID    string           `json:"productId"`
	ProductName  string           `json:"productName,omitempty"`
	Quantity     int              `json:"quantity"`
	UnitPrice    int64            `json:"unitPrice"`
	SlabDiscount int64            `json:"slabDiscount,omitempty"`
	GSTRate      float64          `json:"gstRate"`
	GSTAmount    int64            `json:"gstAmount"`
	LineSubtotal int64            `json:"lineSubtotal"`
	Variants     []variantPayload `json:"variants,omitempty"`
	DesignID     string           `json:"designId,omitempty"`
	FabricID     string           `json:"fabricId,omitempty"`
}

type orderPayload struct {
	ID             string             `json:"id"`
	OrderNumber    string             `json:"orderNumber"`
	UserEmail      string             `json:"userEmail"`
	ShippingState  string             `json:"shippingState,omitempty"`
	Items          []orderItemPayload `json:"items"`
	Subtotal       int64              `json:"subtotal"`
	GST            int64              `json:"gst"`
	Shipping       int64              `json:"shipping"`
	CouponCode     string             `json:"couponCode,omitempty"`
	CouponDiscount int64              `json:"couponDiscount,omitempty"`
	Total          int64              `json:"total"`
	Status         string             `json:"status"`
	PaymentStatus  string             `json:"paymentStatus"`
	PaymentMethod  string             `json:"paymentMethod"`
	GatewayOrderID string             `json:"gatewayOrderId,omitempty"`
	GatewayTxnID   string             `json:"gatewayTxnId,omitempty"`
	NeedsReview    bool               `json:"needsReview,omitempty"`
	CancelReason   string             `json:"cancelReason,omitempty"`
	CreatedAt      string             `json:"createdAt,omitempty"`
	UpdatedAt      string             `json:"updatedAt,omitempty"`
	PaidAt         string             `json:"paidAt,omitempty"`
	CancelledAt    string             `json:"cancelledAt,omitempty"`
	DeliveredAt    string             `json:"deliveredAt,omitempty"`
	RefundedAt     string             `json:"refundedAt,omitempty"`
}

func orderToPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		UserEmail:      order.UserEmail,
		ShippingState:  order.ShippingState,
		Items:          make([]orderItemPayload, 0, len(order.Items)),
		Subtotal:       order.Subtotal,
		GST:            order.GST,
		Shipping:       order.Shipping,
		CouponCode:     order.CouponCode,
		CouponDiscount: order.CouponDiscount,
		Total:          order.Total,
		Status:         string(order.Status),
		PaymentStatus:  string(order.PaymentStatus),
		PaymentMethod:  order.PaymentMethod,
		GatewayOrderID: order.GatewayOrderID,
		GatewayTxnID:   order.GatewayTxnID,
		NeedsReview:    order.NeedsReview,
		CancelReason:   order.CancelReason,
		CreatedAt:      formatTime(order.CreatedAt),
		UpdatedAt:      formatTime(order.UpdatedAt),
		PaidAt:         formatTimePtr(order.PaidAt),
		CancelledAt:    formatTimePtr(order.CancelledAt),
		DeliveredAt:    formatTimePtr(order.DeliveredAt),
		RefundedAt:     formatTimePtr(order.RefundedAt),
	}
	for _, item := range order.Items {
		p := orderItemPayload{
			ProductType:  string(item.ProductType),
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			SlabDiscount: item.SlabDiscount,
			GSTRate:      item.GSTRate,
			GSTAmount:    item.GSTAmount,
			LineSubtotal: item.LineSubtotal,
			DesignID:     item.DesignID,
			FabricID:     item.FabricID,
		}
		for _, v := range item.Variants {
			p.Variants = append(p.Variants, variantPayload{
				Name:          v.Name,
				Value:         v.Value,
				PriceModifier: v.PriceModifier,
			})
		}
		payload.Items = append(payload.Items, p)
	}
	return payload
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
