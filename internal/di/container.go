package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/payments"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/config"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
)

// Services bundles the service-layer contracts the handlers rely upon.
type Services struct {
	Shipping services.ShippingService
	Coupons  services.CouponService
	Pricing  services.PricingEngine
	Cart     services.CartService
	Orders   services.OrderService
}

// ContainerDeps carries the externally constructed infrastructure the
// container assembles services from. Events and Logger are optional.
type ContainerDeps struct {
	Config   config.Config
	Repos    repositories.Registry
	Gateways *payments.Registry
	Events   services.OrderEventPublisher
	Logger   *zap.Logger
}

// Container wires repositories, payment gateways, and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Gateways     *payments.Registry
	Services     Services
}

// NewContainer constructs the runtime dependency graph.
func NewContainer(deps ContainerDeps) (*Container, error) {
	if deps.Repos == nil {
		return nil, errors.New("di: repository registry is required")
	}
	if deps.Gateways == nil {
		return nil, errors.New("di: payment gateway registry is required")
	}

	eventLog := EventLogger(deps.Logger)

	shipping, err := services.NewShippingService(services.ShippingServiceDeps{
		Rules:  deps.Repos.ShippingRules(),
		Logger: eventLog,
	})
	if err != nil {
		return nil, fmt.Errorf("di: shipping service: %w", err)
	}

	coupons, err := services.NewCouponService(services.CouponServiceDeps{
		Coupons: deps.Repos.Coupons(),
		Logger:  eventLog,
	})
	if err != nil {
		return nil, fmt.Errorf("di: coupon service: %w", err)
	}

	pricing, err := services.NewPricingEngine(services.PricingEngineDeps{
		Slabs:    deps.Repos.PricingSlabs(),
		Shipping: shipping,
		Coupons:  coupons,
		Logger:   eventLog,
	})
	if err != nil {
		return nil, fmt.Errorf("di: pricing engine: %w", err)
	}

	cart, err := services.NewCartService(services.CartServiceDeps{
		Carts: deps.Repos.Carts(),
	})
	if err != nil {
		return nil, fmt.Errorf("di: cart service: %w", err)
	}

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:         deps.Repos.Orders(),
		Attempts:       deps.Repos.PaymentAttempts(),
		Counters:       deps.Repos.Counters(),
		Carts:          deps.Repos.Carts(),
		Pricing:        pricing,
		Coupons:        coupons,
		Gateways:       deps.Gateways,
		UnitOfWork:     deps.Repos,
		GatewayTimeout: deps.Config.Payments.GatewayTimeout,
		Country:        deps.Config.Checkout.DefaultCountry,
		Events:         deps.Events,
		Logger:         eventLog,
	})
	if err != nil {
		return nil, fmt.Errorf("di: order service: %w", err)
	}

	return &Container{
		Config:       deps.Config,
		Repositories: deps.Repos,
		Gateways:     deps.Gateways,
		Services: Services{
			Shipping: shipping,
			Coupons:  coupons,
			Pricing:  pricing,
			Cart:     cart,
			Orders:   orders,
		},
	}, nil
}

// Close releases repository clients and any other held resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

// BuildGatewayRegistry constructs the payment gateway registry from
// configuration. Gateways without credentials are left out; at least one must
// be configured.
func BuildGatewayRegistry(cfg config.PaymentsConfig, logger *zap.Logger) (*payments.Registry, error) {
	eventLog := EventLogger(logger)

	var gateways []payments.Gateway
	if cfg.Razorpay.KeyID != "" && cfg.Razorpay.KeySecret != "" {
		razorpay, err := payments.NewRazorpayGateway(payments.RazorpayGatewayConfig{
			KeyID:         cfg.Razorpay.KeyID,
			KeySecret:     cfg.Razorpay.KeySecret,
			WebhookSecret: cfg.Razorpay.WebhookSecret,
			Timeout:       cfg.GatewayTimeout,
			Logger:        eventLog,
		})
		if err != nil {
			return nil, fmt.Errorf("di: razorpay gateway: %w", err)
		}
		gateways = append(gateways, razorpay)
	}
	if cfg.Stripe.APIKey != "" {
		stripe, err := payments.NewStripeGateway(payments.StripeGatewayConfig{
			APIKey:        cfg.Stripe.APIKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Logger:        eventLog,
		})
		if err != nil {
			return nil, fmt.Errorf("di: stripe gateway: %w", err)
		}
		gateways = append(gateways, stripe)
	}
	if cfg.COD.Enabled {
		gateways = append(gateways, payments.NewCODGateway(payments.CODGatewayConfig{
			MaxOrderValue: cfg.COD.MaxOrderValue,
			Logger:        eventLog,
		}))
	}
	if len(gateways) == 0 {
		return nil, errors.New("di: no payment gateway configured")
	}

	var opts []payments.RegistryOption
	if cfg.DefaultGateway != "" {
		opts = append(opts, payments.WithDefaultGateway(cfg.DefaultGateway))
	}
	return payments.NewRegistry(gateways, opts...)
}

// EventLogger adapts a zap logger to the event-style logging callback the
// services and gateways accept. A nil logger yields a no-op callback.
func EventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	if logger == nil {
		return func(context.Context, string, map[string]any) {}
	}
	return func(_ context.Context, event string, fields map[string]any) {
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}
