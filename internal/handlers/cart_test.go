package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
)

func TestGetCartRequiresEmail(t *testing.T) {
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	if payload["error"] != "invalid_request" {
		t.Fatalf("expected invalid_request, got %v", payload["error"])
	}
}

func TestSaveCartNormalisesLines(t *testing.T) {
	carts := &stubCartService{}
	router := newTestRouter(t, carts, &stubPricingEngine{}, nil)

	body := `{
		"userEmail": "buyer@example.in",
		"lines": [
			{"productType": "plain", "productId": " tee-1 ", "quantity": 2, "unitPrice": 49900, "gstRate": 5}
		]
	}`
	req := httptest.NewRequest(http.MethodPut, "/v1/cart", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if carts.saved == nil {
		t.Fatal("expected save to reach the cart service")
	}
	line := carts.saved.Lines[0]
	if line.ProductType != domain.ProductTypePlain {
		t.Fatalf("expected product type uppercased, got %q", line.ProductType)
	}
	if line.ProductID != "tee-1" {
		t.Fatalf("expected trimmed product id, got %q", line.ProductID)
	}
}

func TestClearCart(t *testing.T) {
	carts := &stubCartService{}
	router := newTestRouter(t, carts, &stubPricingEngine{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/v1/cart?email=buyer@example.in", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if carts.cleared != "buyer@example.in" {
		t.Fatalf("expected clear for buyer@example.in, got %q", carts.cleared)
	}
}

func TestQuotePricesStoredCartWhenNoLinesSent(t *testing.T) {
	carts := &stubCartService{cart: domain.Cart{
		Lines: []domain.CartLine{{ProductID: "tee-1", Quantity: 3, UnitPrice: 49900, GSTRate: 5}},
	}}
	pricing := &stubPricingEngine{breakdown: domain.PricingBreakdown{
		Subtotal: 149_700,
		GST:      7_485,
		Shipping: 5_000,
		Total:    162_185,
	}}
	router := newTestRouter(t, carts, pricing, nil)

	body := `{"userEmail": "buyer@example.in", "shippingState": "Delhi", "couponCode": "SAVE10"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/cart/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if pricing.cmd == nil {
		t.Fatal("expected pricing to be invoked")
	}
	if len(pricing.cmd.Lines) != 1 || pricing.cmd.Lines[0].ProductID != "tee-1" {
		t.Fatalf("expected stored cart lines to be priced, got %+v", pricing.cmd.Lines)
	}
	if pricing.cmd.CouponCode != "SAVE10" || pricing.cmd.ShippingState != "Delhi" {
		t.Fatalf("expected coupon and state forwarded, got %+v", pricing.cmd)
	}

	payload := decodeEnvelope(t, rec)
	if payload["total"] != float64(162_185) {
		t.Fatalf("expected total 162185, got %v", payload["total"])
	}
}

func TestQuoteMapsCouponErrors(t *testing.T) {
	pricing := &stubPricingEngine{err: services.ErrCouponExpired}
	router := newTestRouter(t, &stubCartService{}, pricing, nil)

	body := `{"lines": [{"productId": "tee-1", "quantity": 1, "unitPrice": 49900}], "couponCode": "OLD"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/cart/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	if payload["error"] != "coupon_expired" {
		t.Fatalf("expected coupon_expired, got %v", payload["error"])
	}
}
