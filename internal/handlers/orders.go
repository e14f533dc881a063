package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/httpx"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// OrderHandlers exposes order lookup, listing, and lifecycle endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs order handlers.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers order endpoints under the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Get("/{orderNumber}", h.get)
	r.Post("/{orderNumber}/status", h.transition)
	r.Post("/{orderNumber}/refund", h.refund)
}

type orderListResponse struct {
	Orders        []orderPayload `json:"orders"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

type transitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type refundRequest struct {
	Amount int64 `json:"amount,omitempty"`
}

func (h *OrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := repositories.OrderListFilter{
		UserEmail: customerEmail(r, q.Get("email")),
		Pagination: domain.Pagination{
			PageSize:  defaultOrderPageSize,
			PageToken: q.Get("pageToken"),
		},
	}
	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "pageSize must be a positive integer", http.StatusBadRequest))
			return
		}
		if size > maxOrderPageSize {
			size = maxOrderPageSize
		}
		filter.Pagination.PageSize = size
	}
	for _, raw := range splitCSV(q.Get("status")) {
		filter.Status = append(filter.Status, domain.OrderStatus(strings.ToUpper(raw)))
	}
	for _, raw := range splitCSV(q.Get("paymentStatus")) {
		filter.PaymentStatus = append(filter.PaymentStatus, domain.PaymentStatus(strings.ToUpper(raw)))
	}

	page, err := h.orders.List(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := orderListResponse{
		Orders:        make([]orderPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, order := range page.Items {
		resp.Orders = append(resp.Orders, orderToPayload(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

	order, err := h.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToPayload(order))
}

func (h *OrderHandlers) transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

	var req transitionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	next := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if next == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.TransitionStatus(ctx, orderNumber, next, strings.TrimSpace(req.Reason))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToPayload(order))
}

func (h *OrderHandlers) refund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

	var req refundRequest
	if !decodeOptionalJSONBody(w, r, &req) {
		return
	}
	if req.Amount < 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "amount cannot be negative", http.StatusBadRequest))
		return
	}

	order, err := h.orders.InitiateRefund(ctx, orderNumber, req.Amount)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToPayload(order))
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
