package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/firestore"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract and shares one provider across them.
type Registry struct {
	provider *pfirestore.Provider
	uow      *pfirestore.UnitOfWork

	carts           *CartRepository
	orders          *OrderRepository
	paymentAttempts *PaymentAttemptRepository
	coupons         *CouponRepository
	shippingRules   *ShippingRuleRepository
	pricingSlabs    *PricingSlabRepository
	counters        *CounterRepository
	health          repositories.HealthRepository
}

// NewRegistry wires every repository onto the shared provider. The health
// repository probes Firestore connectivity by default.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	attempts, err := NewPaymentAttemptRepository(provider)
	if err != nil {
		return nil, err
	}
	coupons, err := NewCouponRepository(provider)
	if err != nil {
		return nil, err
	}
	shippingRules, err := NewShippingRuleRepository(provider)
	if err != nil {
		return nil, err
	}
	pricingSlabs, err := NewPricingSlabRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}
	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := provider.Client(ctx)
				return err
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:        provider,
		uow:             pfirestore.NewUnitOfWork(provider),
		carts:           carts,
		orders:          orders,
		paymentAttempts: attempts,
		coupons:         coupons,
		shippingRules:   shippingRules,
		pricingSlabs:    pricingSlabs,
		counters:        counters,
		health:          health,
	}, nil
}

// Close releases the shared Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// RunInTx executes fn with all repository operations joined into one transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.uow == nil {
		return errors.New("registry not initialised")
	}
	return r.uow.Run(ctx, fn)
}

func (r *Registry) Carts() repositories.CartRepository               { return r.carts }
func (r *Registry) Orders() repositories.OrderRepository             { return r.orders }
func (r *Registry) PaymentAttempts() repositories.PaymentAttemptRepository { return r.paymentAttempts }
func (r *Registry) Coupons() repositories.CouponRepository           { return r.coupons }
func (r *Registry) ShippingRules() repositories.ShippingRuleRepository { return r.shippingRules }
func (r *Registry) PricingSlabs() repositories.PricingSlabRepository { return r.pricingSlabs }
func (r *Registry) Counters() repositories.CounterRepository         { return r.counters }
func (r *Registry) Health() repositories.HealthRepository            { return r.health }

var _ repositories.Registry = (*Registry)(nil)
