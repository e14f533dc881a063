package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

// ErrCartInvalidInput signals the caller provided invalid cart data.
var ErrCartInvalidInput = errors.New("cart: invalid input")

// CartServiceDeps bundles dependencies required to construct a CartService.
type CartServiceDeps struct {
	Carts repositories.CartRepository
	Clock func() time.Time
}

type cartService struct {
	carts repositories.CartRepository
	clock func() time.Time
}

// NewCartService wires a CartService backed by the provided repository.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &cartService{
		carts: deps.Carts,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

func (s *cartService) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	email := strings.ToLower(strings.TrimSpace(cart.UserEmail))
	if email == "" {
		return domain.Cart{}, fmt.Errorf("%w: user email is required", ErrCartInvalidInput)
	}
	for i, line := range cart.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return domain.Cart{}, fmt.Errorf("%w: line %d is missing a product id", ErrCartInvalidInput, i)
		}
		if line.Quantity < 1 {
			return domain.Cart{}, fmt.Errorf("%w: line %d quantity must be at least 1", ErrCartInvalidInput, i)
		}
	}
	cart.UserEmail = email
	cart.UpdatedAt = s.clock()
	return s.carts.Upsert(ctx, cart)
}

func (s *cartService) Get(ctx context.Context, userEmail string) (domain.Cart, error) {
	email := strings.ToLower(strings.TrimSpace(userEmail))
	if email == "" {
		return domain.Cart{}, fmt.Errorf("%w: user email is required", ErrCartInvalidInput)
	}
	return s.carts.Get(ctx, email)
}

func (s *cartService) Clear(ctx context.Context, userEmail string) error {
	email := strings.ToLower(strings.TrimSpace(userEmail))
	if email == "" {
		return fmt.Errorf("%w: user email is required", ErrCartInvalidInput)
	}
	return s.carts.Delete(ctx, email)
}
