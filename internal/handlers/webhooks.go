package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/httpx"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/requestctx"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
)

// Gateway callbacks can be large; Stripe events in particular carry the full
// expanded object graph.
const maxWebhookBodySize = 512 * 1024

// WebhookHandlers receives asynchronous payment notifications from the
// gateways and hands them to the order service for settlement.
type WebhookHandlers struct {
	orders services.OrderService
}

// NewWebhookHandlers constructs webhook handlers.
func NewWebhookHandlers(orders services.OrderService) *WebhookHandlers {
	return &WebhookHandlers{orders: orders}
}

// Routes registers webhook endpoints under the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/{gateway}", h.receive)
}

type webhookResponse struct {
	Received    bool   `json:"received"`
	EventType   string `json:"eventType,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Applied     bool   `json:"applied"`
	NeedsReview bool   `json:"needsReview,omitempty"`
}

// receive acknowledges every authentic delivery with 200 so the gateway stops
// retrying; only signature failures and unknown gateways are rejected.
func (h *WebhookHandlers) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gateway := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "gateway")))

	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	outcome, err := h.orders.HandleWebhook(ctx, gateway, body, r.Header)
	if err != nil {
		requestctx.Logger(ctx).Warn("webhook rejected",
			zap.String("gateway", gateway),
			zap.Error(err),
		)
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Received:    true,
		EventType:   string(outcome.EventType),
		OrderNumber: outcome.OrderNumber,
		Applied:     outcome.Applied,
		NeedsReview: outcome.NeedsReview,
	})
}
