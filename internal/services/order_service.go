package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/payments"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

const (
	orderEventCreated        = "order.created"
	orderEventPaymentChanged = "order.payment.changed"
	orderEventStatusChanged  = "order.status.changed"

	orderIDPrefix          = "ord_"
	paymentAttemptIDPrefix = "pay_"

	orderNumberCounterPrefix = "orders-"
	orderNumberFormat        = "SARA-%s-%04d"
	orderNumberMonthLayout   = "200601"

	defaultGatewayTimeout = 15 * time.Second
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates a lost transactional race after the automatic retry.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrPaymentInitiation indicates the gateway refused or failed to create the payment.
	ErrPaymentInitiation = errors.New("order: payment initiation failed")
	// ErrPaymentRejected indicates a callback or webhook carried an invalid signature.
	ErrPaymentRejected = errors.New("order: payment proof rejected")
)

var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPlaced:         {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:      {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:        {domain.OrderStatusOutForDelivery},
	domain.OrderStatusOutForDelivery: {domain.OrderStatusDelivered},
}

// CanTransitionOrderStatus reports whether an order may move between the two
// fulfilment states.
func CanTransitionOrderStatus(from, to domain.OrderStatus) bool {
	return slices.Contains(orderStateTransitions[from], to)
}

// OrderEvent captures metadata for emitted order lifecycle events.
type OrderEvent struct {
	Type           string
	OrderID        string
	OrderNumber    string
	UserEmail      string
	PreviousStatus string
	CurrentStatus  string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// OrderEventPublisher notifies downstream consumers of order lifecycle
// changes. Publishing is fire-and-forget: failures are logged, never rolled
// back into the order.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders         repositories.OrderRepository
	Attempts       repositories.PaymentAttemptRepository
	Counters       repositories.CounterRepository
	Carts          repositories.CartRepository
	Pricing        PricingEngine
	Coupons        CouponService
	Gateways       *payments.Registry
	UnitOfWork     repositories.UnitOfWork
	Clock          func() time.Time
	IDGenerator    func() string
	GatewayTimeout time.Duration
	// Country is the destination market gateway eligibility is checked
	// against; empty defaults to the home market.
	Country string
	Events  OrderEventPublisher
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders         repositories.OrderRepository
	attempts       repositories.PaymentAttemptRepository
	counters       repositories.CounterRepository
	carts          repositories.CartRepository
	pricing        PricingEngine
	coupons        CouponService
	gateways       *payments.Registry
	unitOfWork     repositories.UnitOfWork
	clock          func() time.Time
	newID          func() string
	gatewayTimeout time.Duration
	country        string
	events         OrderEventPublisher
	logger         func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Attempts == nil {
		return nil, errors.New("order service: payment attempt repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order service: pricing engine is required")
	}
	if deps.Coupons == nil {
		return nil, errors.New("order service: coupon service is required")
	}
	if deps.Gateways == nil {
		return nil, errors.New("order service: gateway registry is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("order service: unit of work is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	timeout := deps.GatewayTimeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:         deps.Orders,
		attempts:       deps.Attempts,
		counters:       deps.Counters,
		carts:          deps.Carts,
		pricing:        deps.Pricing,
		coupons:        deps.Coupons,
		gateways:       deps.Gateways,
		unitOfWork:     deps.UnitOfWork,
		clock:          func() time.Time { return clock().UTC() },
		newID:          idGen,
		gatewayTimeout: timeout,
		country:        payments.NormalizeCountry(deps.Country),
		events:         deps.Events,
		logger:         logger,
	}, nil
}

// Checkout reprices the cart server-side, persists the order together with
// the coupon redemption in one transaction, and opens a payment with the
// selected gateway. Client-submitted totals never enter this path.
func (s *orderService) Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.UserEmail))
	if email == "" {
		return CheckoutResult{}, fmt.Errorf("%w: user email is required", ErrOrderInvalidInput)
	}
	if len(cmd.Lines) == 0 {
		return CheckoutResult{}, fmt.Errorf("%w: cart must contain at least one line", ErrOrderInvalidInput)
	}

	gateway, err := s.gateways.Resolve(cmd.PaymentMethod)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	breakdown, err := s.pricing.PriceCart(ctx, PriceCartCommand{
		Lines:         cmd.Lines,
		ShippingState: cmd.ShippingState,
		CouponCode:    cmd.CouponCode,
		UserEmail:     email,
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	if checker, ok := gateway.(payments.EligibilityChecker); ok {
		if err := checker.CheckEligibility(s.country, breakdown.Total); err != nil {
			return CheckoutResult{}, err
		}
	}

	orderNumber, err := s.nextOrderNumber(ctx)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("allocate order number: %w", err)
	}

	now := s.clock()
	order := domain.Order{
		ID:             orderIDPrefix + strings.ToLower(s.newID()),
		OrderNumber:    orderNumber,
		UserEmail:      email,
		ShippingState:  strings.TrimSpace(cmd.ShippingState),
		Items:          buildOrderItems(cmd.Lines, breakdown),
		Subtotal:       breakdown.Subtotal,
		GST:            breakdown.GST,
		Shipping:       breakdown.Shipping,
		CouponCode:     breakdown.CouponCode,
		CouponDiscount: breakdown.CouponDiscount,
		Total:          breakdown.Total,
		Status:         domain.OrderStatusPlaced,
		PaymentStatus:  domain.PaymentStatusPending,
		PaymentMethod:  gateway.Name(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.commitOrder(ctx, order, breakdown); err != nil {
		return CheckoutResult{}, err
	}

	payment, err := s.openPayment(ctx, gateway, order, cmd.Notes)
	if err != nil {
		s.compensateCheckout(ctx, order, breakdown)
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrPaymentInitiation, err)
	}

	order.GatewayOrderID = payment.GatewayOrderID
	if err := s.orders.Update(ctx, order); err != nil {
		s.logger(ctx, "order.gateway_ref.persist_failed", map[string]any{
			"orderId": order.ID, "error": err.Error(),
		})
	}

	attempt := domain.PaymentAttempt{
		ID:             paymentAttemptIDPrefix + strings.ToLower(s.newID()),
		OrderID:        order.ID,
		Gateway:        gateway.Name(),
		GatewayOrderID: payment.GatewayOrderID,
		Status:         domain.PaymentAttemptCreated,
		RawPayload:     payment.Raw,
		CreatedAt:      s.clock(),
	}
	if err := s.attempts.Insert(ctx, attempt); err != nil {
		s.logger(ctx, "order.payment_attempt.persist_failed", map[string]any{
			"orderId": order.ID, "error": err.Error(),
		})
	}

	if s.carts != nil {
		if err := s.carts.Delete(ctx, email); err != nil {
			s.logger(ctx, "order.cart.clear_failed", map[string]any{
				"orderId": order.ID, "error": err.Error(),
			})
		}
	}

	s.publish(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserEmail:     order.UserEmail,
		CurrentStatus: string(order.Status),
		OccurredAt:    s.clock(),
		Metadata:      map[string]any{"total": order.Total, "gateway": order.PaymentMethod},
	})

	return CheckoutResult{Order: order, Payment: payment}, nil
}

// commitOrder persists the order and, when a coupon was priced in, its usage
// increment inside the same transaction. A transactional conflict is retried
// once before surfacing; a coupon limit hit at commit time fails the order.
func (s *orderService) commitOrder(ctx context.Context, order domain.Order, breakdown domain.PricingBreakdown) error {
	commit := func(ctx context.Context) error {
		if breakdown.CouponID != "" {
			if err := s.coupons.Apply(ctx, breakdown.CouponID, order.UserEmail); err != nil {
				return err
			}
		}
		return s.orders.Insert(ctx, order)
	}

	err := s.unitOfWork.RunInTx(ctx, commit)
	if err == nil {
		return nil
	}
	if !isRepositoryConflict(err) {
		return err
	}

	s.logger(ctx, "order.commit.retry", map[string]any{
		"orderId": order.ID, "error": err.Error(),
	})
	if err := s.unitOfWork.RunInTx(ctx, commit); err != nil {
		if isRepositoryConflict(err) {
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		}
		return err
	}
	return nil
}

func (s *orderService) openPayment(ctx context.Context, gateway payments.Gateway, order domain.Order, notes map[string]string) (payments.CreatePaymentResult, error) {
	payCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	return gateway.CreatePayment(payCtx, payments.CreatePaymentRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        order.Total,
		Currency:      "INR",
		CustomerEmail: order.UserEmail,
		Notes:         notes,
	})
}

// compensateCheckout unwinds a committed order whose payment never opened:
// the coupon slot is released and the order is marked failed so the customer
// can restart checkout.
func (s *orderService) compensateCheckout(ctx context.Context, order domain.Order, breakdown domain.PricingBreakdown) {
	if breakdown.CouponID != "" {
		if err := s.coupons.Release(ctx, breakdown.CouponID, order.UserEmail); err != nil {
			s.logger(ctx, "order.coupon.release_failed", map[string]any{
				"orderId": order.ID, "coupon": breakdown.CouponCode, "error": err.Error(),
			})
		}
	}
	order.PaymentStatus = domain.PaymentStatusFailed
	order.UpdatedAt = s.clock()
	if err := s.orders.Update(ctx, order); err != nil {
		s.logger(ctx, "order.payment_failure.persist_failed", map[string]any{
			"orderId": order.ID, "error": err.Error(),
		})
	}
}

// VerifyPayment settles a client-side gateway callback. A bad signature is
// rejected without touching the order.
func (s *orderService) VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) (domain.Order, error) {
	if strings.TrimSpace(cmd.GatewayOrderID) == "" {
		return domain.Order{}, fmt.Errorf("%w: gateway order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByGatewayOrderID(ctx, cmd.GatewayOrderID)
	if err != nil {
		if isRepositoryNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: gateway order %s", ErrOrderNotFound, cmd.GatewayOrderID)
		}
		return domain.Order{}, err
	}

	gateway, err := s.gateways.Resolve(order.PaymentMethod)
	if err != nil {
		return domain.Order{}, err
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	if err := gateway.VerifyPayment(verifyCtx, payments.VerifyPaymentRequest{
		GatewayOrderID:   cmd.GatewayOrderID,
		GatewayPaymentID: cmd.GatewayPaymentID,
		Signature:        cmd.Signature,
	}); err != nil {
		if errors.Is(err, payments.ErrSignatureMismatch) {
			return domain.Order{}, fmt.Errorf("%w: %v", ErrPaymentRejected, err)
		}
		return domain.Order{}, err
	}

	settled, _, err := s.settlePayment(ctx, order.ID, true, cmd.GatewayPaymentID)
	if err != nil {
		return domain.Order{}, err
	}
	return settled, nil
}

// HandleWebhook reconciles an asynchronous gateway notification. Unknown
// event types and unknown orders are accepted and ignored so the sender's
// retry loop is not broken; only an invalid signature is rejected.
func (s *orderService) HandleWebhook(ctx context.Context, gatewayName string, body []byte, headers http.Header) (WebhookOutcome, error) {
	gateway, err := s.gateways.Resolve(gatewayName)
	if err != nil {
		return WebhookOutcome{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	event, err := gateway.ParseWebhookEvent(ctx, body, headers)
	if err != nil {
		if errors.Is(err, payments.ErrSignatureMismatch) {
			return WebhookOutcome{}, fmt.Errorf("%w: %v", ErrPaymentRejected, err)
		}
		return WebhookOutcome{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	outcome := WebhookOutcome{EventType: event.Type}
	if event.Type == payments.EventIgnored {
		return outcome, nil
	}
	if !event.Verified {
		s.logger(ctx, "webhook.unverified", map[string]any{
			"gateway": gateway.Name(), "gatewayOrderId": event.GatewayOrderID,
		})
	}

	order, err := s.orders.FindByGatewayOrderID(ctx, event.GatewayOrderID)
	if err != nil {
		if isRepositoryNotFound(err) {
			s.logger(ctx, "webhook.order_unknown", map[string]any{
				"gateway": gateway.Name(), "gatewayOrderId": event.GatewayOrderID,
			})
			return outcome, nil
		}
		return WebhookOutcome{}, err
	}
	outcome.OrderID = order.ID
	outcome.OrderNumber = order.OrderNumber

	succeeded := event.Type == payments.EventPaymentSucceeded
	settled, applied, err := s.settlePayment(ctx, order.ID, succeeded, event.GatewayTxnID)
	if err != nil {
		return WebhookOutcome{}, err
	}
	outcome.Applied = applied
	outcome.NeedsReview = settled.NeedsReview
	return outcome, nil
}

// settlePayment moves an order's payment status to its terminal value exactly
// once. Re-reading inside the transaction makes duplicate deliveries no-ops:
// a success on an already-paid order changes nothing, and a success landing
// after a recorded failure is flagged for manual review, never overwritten.
func (s *orderService) settlePayment(ctx context.Context, orderID string, succeeded bool, gatewayTxnID string) (domain.Order, bool, error) {
	var (
		settled domain.Order
		applied bool
	)
	err := s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		applied = false
		now := s.clock()

		switch order.PaymentStatus {
		case domain.PaymentStatusPending:
			if succeeded {
				order.PaymentStatus = domain.PaymentStatusPaid
				order.PaidAt = &now
				if CanTransitionOrderStatus(order.Status, domain.OrderStatusConfirmed) {
					order.Status = domain.OrderStatusConfirmed
				}
			} else {
				order.PaymentStatus = domain.PaymentStatusFailed
			}
			if gatewayTxnID != "" {
				order.GatewayTxnID = gatewayTxnID
			}
			order.UpdatedAt = now
			applied = true
			settled = order
			return s.orders.Update(ctx, order)
		case domain.PaymentStatusFailed:
			if succeeded && !order.NeedsReview {
				order.NeedsReview = true
				if gatewayTxnID != "" {
					order.GatewayTxnID = gatewayTxnID
				}
				order.UpdatedAt = now
				settled = order
				return s.orders.Update(ctx, order)
			}
		}
		settled = order
		return nil
	})
	if err != nil {
		return domain.Order{}, false, err
	}

	if settled.NeedsReview {
		s.logger(ctx, "order.payment.conflict", map[string]any{
			"orderId": settled.ID, "orderNumber": settled.OrderNumber,
		})
	}
	if applied {
		s.recordAttemptOutcome(ctx, settled, succeeded, gatewayTxnID)
		s.publish(ctx, OrderEvent{
			Type:          orderEventPaymentChanged,
			OrderID:       settled.ID,
			OrderNumber:   settled.OrderNumber,
			UserEmail:     settled.UserEmail,
			CurrentStatus: string(settled.Status),
			OccurredAt:    s.clock(),
			Metadata:      map[string]any{"paymentStatus": string(settled.PaymentStatus)},
		})
	}
	return settled, applied, nil
}

// recordAttemptOutcome stamps the terminal state onto the matching payment
// attempt for audit. Best effort: attempt bookkeeping never fails settlement.
func (s *orderService) recordAttemptOutcome(ctx context.Context, order domain.Order, succeeded bool, gatewayTxnID string) {
	attempts, err := s.attempts.ListByOrder(ctx, order.ID)
	if err != nil {
		s.logger(ctx, "order.payment_attempt.lookup_failed", map[string]any{
			"orderId": order.ID, "error": err.Error(),
		})
		return
	}
	for i := len(attempts) - 1; i >= 0; i-- {
		attempt := attempts[i]
		if attempt.GatewayOrderID != order.GatewayOrderID || attempt.Status != domain.PaymentAttemptCreated {
			continue
		}
		if succeeded {
			attempt.Status = domain.PaymentAttemptSucceeded
		} else {
			attempt.Status = domain.PaymentAttemptFailed
		}
		attempt.GatewayTxnID = gatewayTxnID
		if err := s.attempts.Update(ctx, attempt); err != nil {
			s.logger(ctx, "order.payment_attempt.update_failed", map[string]any{
				"orderId": order.ID, "attemptId": attempt.ID, "error": err.Error(),
			})
		}
		return
	}
}

func (s *orderService) GetByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return domain.Order{}, fmt.Errorf("%w: order number is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByOrderNumber(ctx, number)
	if err != nil {
		if isRepositoryNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, number)
		}
		return domain.Order{}, err
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	return s.orders.List(ctx, filter)
}

// TransitionStatus moves an order through the fulfilment machine. Delivery
// of a cash-on-delivery order also settles its pending payment.
func (s *orderService) TransitionStatus(ctx context.Context, orderNumber string, next domain.OrderStatus, reason string) (domain.Order, error) {
	current, err := s.GetByNumber(ctx, orderNumber)
	if err != nil {
		return domain.Order{}, err
	}

	var updated domain.Order
	err = s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, current.ID)
		if err != nil {
			return err
		}
		if !CanTransitionOrderStatus(order.Status, next) {
			return fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, order.Status, next)
		}
		now := s.clock()
		order.Status = next
		order.UpdatedAt = now
		switch next {
		case domain.OrderStatusCancelled:
			order.CancelReason = strings.TrimSpace(reason)
			order.CancelledAt = &now
		case domain.OrderStatusDelivered:
			order.DeliveredAt = &now
			if order.PaymentMethod == payments.GatewayNameCOD && order.PaymentStatus == domain.PaymentStatusPending {
				order.PaymentStatus = domain.PaymentStatusPaid
				order.PaidAt = &now
			}
		}
		updated = order
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.publish(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        updated.ID,
		OrderNumber:    updated.OrderNumber,
		UserEmail:      updated.UserEmail,
		PreviousStatus: string(current.Status),
		CurrentStatus:  string(updated.Status),
		OccurredAt:     s.clock(),
	})
	return updated, nil
}

// InitiateRefund asks the gateway to return funds for a paid order. Gateways
// that settle refunds synchronously complete the refund immediately; others
// leave it initiated for later reconciliation.
func (s *orderService) InitiateRefund(ctx context.Context, orderNumber string, amount int64) (domain.Order, error) {
	order, err := s.GetByNumber(ctx, orderNumber)
	if err != nil {
		return domain.Order{}, err
	}
	if order.PaymentStatus != domain.PaymentStatusPaid {
		return domain.Order{}, fmt.Errorf("%w: refund requires a paid order, payment status is %s",
			ErrOrderInvalidState, order.PaymentStatus)
	}
	if amount <= 0 || amount > order.Total {
		amount = order.Total
	}

	gateway, err := s.gateways.Resolve(order.PaymentMethod)
	if err != nil {
		return domain.Order{}, err
	}

	refundCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := gateway.Refund(refundCtx, payments.RefundRequest{
		GatewayOrderID: order.GatewayOrderID,
		GatewayTxnID:   order.GatewayTxnID,
		Amount:         amount,
		Notes:          map[string]string{"order_number": order.OrderNumber},
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", ErrPaymentInitiation, err)
	}

	now := s.clock()
	order.PaymentStatus = domain.PaymentStatusRefundInitiated
	if result.Status == payments.StatusRefunded {
		order.PaymentStatus = domain.PaymentStatusRefundCompleted
		order.RefundedAt = &now
	}
	order.UpdatedAt = now
	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, err
	}

	s.publish(ctx, OrderEvent{
		Type:          orderEventPaymentChanged,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserEmail:     order.UserEmail,
		CurrentStatus: string(order.Status),
		OccurredAt:    now,
		Metadata: map[string]any{
			"paymentStatus": string(order.PaymentStatus),
			"refundId":      result.RefundID,
			"amount":        amount,
		},
	})
	return order, nil
}

// nextOrderNumber hands out SARA-YYYYMM-NNNN numbers. The counter is scoped
// per calendar month so the sequence restarts at 0001 when the month rolls
// over.
func (s *orderService) nextOrderNumber(ctx context.Context) (string, error) {
	month := s.clock().Format(orderNumberMonthLayout)
	seq, err := s.counters.Next(ctx, orderNumberCounterPrefix+month, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(orderNumberFormat, month, seq), nil
}

func (s *orderService) publish(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish_failed", map[string]any{
			"type": event.Type, "orderId": event.OrderID, "error": err.Error(),
		})
	}
}

// buildOrderItems snapshots cart lines together with the pricing outcome so
// the order never depends on live product data again.
func buildOrderItems(lines []domain.CartLine, breakdown domain.PricingBreakdown) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for i, line := range lines {
		item := domain.OrderItem{
			ProductType: line.ProductType,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			GSTRate:     line.GSTRate,
			Variants:    slices.Clone(line.Variants),
			DesignID:    line.DesignID,
			FabricID:    line.FabricID,
		}
		if i < len(breakdown.Lines) {
			priced := breakdown.Lines[i]
			item.UnitPrice = priced.EffectiveUnitPrice
			item.SlabDiscount = priced.SlabDiscount
			item.GSTAmount = priced.GSTAmount
			item.LineSubtotal = priced.Subtotal
		}
		items = append(items, item)
	}
	return items
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isRepositoryConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
