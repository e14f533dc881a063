package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/payments"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
)

type stubCartService struct {
	saved   *domain.Cart
	cart    domain.Cart
	getErr  error
	saveErr error
	cleared string
}

func (s *stubCartService) Save(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	if s.saveErr != nil {
		return domain.Cart{}, s.saveErr
	}
	s.saved = &cart
	return cart, nil
}

func (s *stubCartService) Get(_ context.Context, userEmail string) (domain.Cart, error) {
	if s.getErr != nil {
		return domain.Cart{}, s.getErr
	}
	cart := s.cart
	cart.UserEmail = userEmail
	return cart, nil
}

func (s *stubCartService) Clear(_ context.Context, userEmail string) error {
	s.cleared = userEmail
	return nil
}

type stubPricingEngine struct {
	cmd       *services.PriceCartCommand
	breakdown domain.PricingBreakdown
	err       error
}

func (s *stubPricingEngine) PriceCart(_ context.Context, cmd services.PriceCartCommand) (domain.PricingBreakdown, error) {
	s.cmd = &cmd
	if s.err != nil {
		return domain.PricingBreakdown{}, s.err
	}
	return s.breakdown, nil
}

type stubOrderService struct {
	checkoutCmd    *services.CheckoutCommand
	checkoutResult services.CheckoutResult
	checkoutErr    error

	verifyCmd   *services.VerifyPaymentCommand
	verifyOrder domain.Order
	verifyErr   error

	webhookGateway string
	webhookBody    []byte
	webhookOutcome services.WebhookOutcome
	webhookErr     error

	getOrder domain.Order
	getErr   error

	listFilter *repositories.OrderListFilter
	listPage   domain.CursorPage[domain.Order]
	listErr    error

	transitionNext   domain.OrderStatus
	transitionReason string
	transitionOrder  domain.Order
	transitionErr    error

	refundAmount int64
	refundOrder  domain.Order
	refundErr    error
}

func (s *stubOrderService) Checkout(_ context.Context, cmd services.CheckoutCommand) (services.CheckoutResult, error) {
	s.checkoutCmd = &cmd
	if s.checkoutErr != nil {
		return services.CheckoutResult{}, s.checkoutErr
	}
	return s.checkoutResult, nil
}

func (s *stubOrderService) VerifyPayment(_ context.Context, cmd services.VerifyPaymentCommand) (domain.Order, error) {
	s.verifyCmd = &cmd
	if s.verifyErr != nil {
		return domain.Order{}, s.verifyErr
	}
	return s.verifyOrder, nil
}

func (s *stubOrderService) HandleWebhook(_ context.Context, gateway string, body []byte, _ http.Header) (services.WebhookOutcome, error) {
	s.webhookGateway = gateway
	s.webhookBody = body
	if s.webhookErr != nil {
		return services.WebhookOutcome{}, s.webhookErr
	}
	return s.webhookOutcome, nil
}

func (s *stubOrderService) GetByNumber(_ context.Context, _ string) (domain.Order, error) {
	if s.getErr != nil {
		return domain.Order{}, s.getErr
	}
	return s.getOrder, nil
}

func (s *stubOrderService) List(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	s.listFilter = &filter
	if s.listErr != nil {
		return domain.CursorPage[domain.Order]{}, s.listErr
	}
	return s.listPage, nil
}

func (s *stubOrderService) TransitionStatus(_ context.Context, _ string, next domain.OrderStatus, reason string) (domain.Order, error) {
	s.transitionNext = next
	s.transitionReason = reason
	if s.transitionErr != nil {
		return domain.Order{}, s.transitionErr
	}
	return s.transitionOrder, nil
}

func (s *stubOrderService) InitiateRefund(_ context.Context, _ string, amount int64) (domain.Order, error) {
	s.refundAmount = amount
	if s.refundErr != nil {
		return domain.Order{}, s.refundErr
	}
	return s.refundOrder, nil
}

func newTestRouter(t *testing.T, carts *stubCartService, pricing *stubPricingEngine, orders *stubOrderService) http.Handler {
	t.Helper()

	opts := []Option{}
	if carts != nil || pricing != nil {
		cartHandlers := NewCartHandlers(carts, pricing)
		opts = append(opts, WithCartRoutes(cartHandlers.Routes))
	}
	if orders != nil {
		var cartSvc services.CartService
		if carts != nil {
			cartSvc = carts
		}
		opts = append(opts,
			WithCheckoutRoutes(NewCheckoutHandlers(orders, cartSvc).Routes),
			WithOrderRoutes(NewOrderHandlers(orders).Routes),
			WithWebhookRoutes(NewWebhookHandlers(orders).Routes),
		)
	}
	return NewRouter(opts...)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response body: %v (body %q)", err, rec.Body.String())
	}
	return payload
}

func TestRouterUnknownRouteEnvelope(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	if payload["error"] != "route_not_found" {
		t.Fatalf("expected route_not_found, got %v", payload["error"])
	}
}

func TestRouterMethodNotAllowedEnvelope(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	if payload["error"] != "method_not_allowed" {
		t.Fatalf("expected method_not_allowed, got %v", payload["error"])
	}
}

func TestRouterHealthzAlwaysUp(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCustomerEmailHeaderReachesHandlers(t *testing.T) {
	carts := &stubCartService{cart: domain.Cart{Lines: []domain.CartLine{{ProductID: "p1", Quantity: 1}}}}
	router := newTestRouter(t, carts, &stubPricingEngine{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/cart/", nil)
	req.Header.Set(CustomerEmailHeader, "shopper@example.in")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec)
	if payload["userEmail"] != "shopper@example.in" {
		t.Fatalf("expected header email on cart, got %v", payload["userEmail"])
	}
}

func TestPaymentMethodsEndpoint(t *testing.T) {
	registry, err := payments.NewRegistry([]payments.Gateway{
		payments.NewCODGateway(payments.CODGatewayConfig{MaxOrderValue: 100_000}),
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	router := NewRouter(WithPaymentRoutes(NewPaymentHandlers(registry).Routes))

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/methods?amount=50000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"cod"`) {
		t.Fatalf("expected cod method in response, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"country":"IN"`) {
		t.Fatalf("expected the default country in the response, got %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/payments/methods?amount=abc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad amount, got %d", rec.Code)
	}
}
