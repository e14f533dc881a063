package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
)

func TestGetOrderNotFound(t *testing.T) {
	orders := &stubOrderService{getErr: services.ErrOrderNotFound}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders/SARA-202601-0099", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	if payload["error"] != "order_not_found" {
		t.Fatalf("expected order_not_found, got %v", payload["error"])
	}
}

func TestListOrdersParsesFilters(t *testing.T) {
	orders := &stubOrderService{listPage: domain.CursorPage[domain.Order]{
		Items:         []domain.Order{placedOrder()},
		NextPageToken: "tok123",
	}}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	req := httptest.NewRequest(http.MethodGet,
		"/v1/orders?email=buyer@example.in&status=placed,confirmed&paymentStatus=PENDING&pageSize=5&pageToken=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	filter := orders.listFilter
	if filter == nil {
		t.Fatal("expected list to reach the order service")
	}
	if filter.UserEmail != "buyer@example.in" {
		t.Fatalf("unexpected email filter %q", filter.UserEmail)
	}
	if len(filter.Status) != 2 || filter.Status[0] != domain.OrderStatusPlaced || filter.Status[1] != domain.OrderStatusConfirmed {
		t.Fatalf("unexpected status filter %v", filter.Status)
	}
	if len(filter.PaymentStatus) != 1 || filter.PaymentStatus[0] != domain.PaymentStatusPending {
		t.Fatalf("unexpected payment status filter %v", filter.PaymentStatus)
	}
	if filter.Pagination.PageSize != 5 || filter.Pagination.PageToken != "abc" {
		t.Fatalf("unexpected pagination %+v", filter.Pagination)
	}

	payload := decodeEnvelope(t, rec)
	if payload["nextPageToken"] != "tok123" {
		t.Fatalf("expected next page token, got %v", payload["nextPageToken"])
	}
}

func TestListOrdersRejectsBadPageSize(t *testing.T) {
	orders := &stubOrderService{}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders?pageSize=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if orders.listFilter != nil {
		t.Fatal("list must not run with an invalid page size")
	}
}

func TestTransitionStatus(t *testing.T) {
	shipped := placedOrder()
	shipped.Status = domain.OrderStatusShipped
	orders := &stubOrderService{transitionOrder: shipped}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	body := `{"status": "shipped"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/SARA-202601-0042/status", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if orders.transitionNext != domain.OrderStatusShipped {
		t.Fatalf("expected SHIPPED, got %q", orders.transitionNext)
	}
}

func TestTransitionInvalidStateIsConflict(t *testing.T) {
	orders := &stubOrderService{transitionErr: services.ErrOrderInvalidState}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	body := `{"status": "DELIVERED"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/SARA-202601-0042/status", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	if payload["error"] != "invalid_status_transition" {
		t.Fatalf("expected invalid_status_transition, got %v", payload["error"])
	}
}

func TestCancelPassesReason(t *testing.T) {
	cancelled := placedOrder()
	cancelled.Status = domain.OrderStatusCancelled
	orders := &stubOrderService{transitionOrder: cancelled}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	body := `{"status": "CANCELLED", "reason": "changed my mind"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/SARA-202601-0042/status", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if orders.transitionReason != "changed my mind" {
		t.Fatalf("expected reason forwarded, got %q", orders.transitionReason)
	}
}

func TestRefundWithoutBodyRequestsFullRefund(t *testing.T) {
	refunded := placedOrder()
	refunded.PaymentStatus = domain.PaymentStatusRefundInitiated
	orders := &stubOrderService{refundOrder: refunded}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	req := httptest.NewRequest(http.MethodPost, "/v1/orders/SARA-202601-0042/refund", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if orders.refundAmount != 0 {
		t.Fatalf("expected zero amount to signal full refund, got %d", orders.refundAmount)
	}
	payload := decodeEnvelope(t, rec)
	if payload["paymentStatus"] != "REFUND_INITIATED" {
		t.Fatalf("expected REFUND_INITIATED, got %v", payload["paymentStatus"])
	}
}

func TestRefundRejectsNegativeAmount(t *testing.T) {
	orders := &stubOrderService{}
	router := newTestRouter(t, &stubCartService{}, &stubPricingEngine{}, orders)

	body := `{"amount": -100}`
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/SARA-202601-0042/refund", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
