package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/payments"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/httpx"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/requestctx"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
)

type errorMapping struct {
	sentinel error
	code     string
	status   int
}

// Ordered mapping from service sentinels to the JSON error envelope. Coupon
// rule failures carry machine-readable codes so the storefront can react
// without parsing messages.
var errorMappings = []errorMapping{
	{services.ErrCartInvalidInput, "invalid_request", http.StatusBadRequest},
	{services.ErrPricingInvalidInput, "invalid_request", http.StatusBadRequest},
	{services.ErrShippingInvalidInput, "invalid_request", http.StatusBadRequest},
	{services.ErrCouponInvalidInput, "invalid_request", http.StatusBadRequest},
	{services.ErrOrderInvalidInput, "invalid_request", http.StatusBadRequest},
	{services.ErrCouponNotFound, "coupon_not_found", http.StatusNotFound},
	{services.ErrCouponInactive, "coupon_inactive", http.StatusBadRequest},
	{services.ErrCouponExpired, "coupon_expired", http.StatusBadRequest},
	{services.ErrCouponMinOrder, "coupon_min_order_not_met", http.StatusBadRequest},
	{services.ErrCouponExhausted, "coupon_exhausted", http.StatusBadRequest},
	{services.ErrCouponUserLimit, "coupon_user_limit_reached", http.StatusBadRequest},
	{services.ErrOrderNotFound, "order_not_found", http.StatusNotFound},
	{services.ErrOrderInvalidState, "invalid_status_transition", http.StatusConflict},
	{services.ErrOrderConflict, "conflict_retry", http.StatusConflict},
	{services.ErrPaymentRejected, "invalid_signature", http.StatusBadRequest},
	{services.ErrPaymentInitiation, "payment_gateway_error", http.StatusBadGateway},
	{services.ErrShippingRulesUnavailable, "shipping_unavailable", http.StatusServiceUnavailable},
	{payments.ErrNotEligible, "payment_method_not_eligible", http.StatusBadRequest},
	{payments.ErrUnsupportedGateway, "unsupported_gateway", http.StatusBadRequest},
}

// writeServiceError translates a service failure into the error envelope.
// Unmapped errors are logged server-side and surface as a generic 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.sentinel) {
			httpx.WriteError(ctx, w, httpx.NewError(mapping.code, err.Error(), mapping.status))
			return
		}
	}
	requestctx.Logger(ctx).Error("unhandled service error", zap.Error(err))
	httpx.WriteError(ctx, w, httpx.NewError("internal_error", "something went wrong", http.StatusInternalServerError))
}
