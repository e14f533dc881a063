package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/payments"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/httpx"
)

// PaymentHandlers reports which payment methods the storefront can offer.
type PaymentHandlers struct {
	registry *payments.Registry
}

// NewPaymentHandlers constructs payment handlers.
func NewPaymentHandlers(registry *payments.Registry) *PaymentHandlers {
	return &PaymentHandlers{registry: registry}
}

// Routes registers payment endpoints under the provided router.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/methods", h.methods)
}

type paymentMethodsResponse struct {
	Country string                `json:"country"`
	Amount  int64                 `json:"amount"`
	Methods []payments.MethodInfo `json:"methods"`
}

func (h *PaymentHandlers) methods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	country := payments.NormalizeCountry(r.URL.Query().Get("country"))

	var amount int64
	if raw := r.URL.Query().Get("amount"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "amount must be a non-negative integer", http.StatusBadRequest))
			return
		}
		amount = parsed
	}

	writeJSON(w, http.StatusOK, paymentMethodsResponse{
		Country: country,
		Amount:  amount,
		Methods: h.registry.AvailableMethods(country, amount),
	})
}
