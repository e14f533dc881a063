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

var (
	// ErrCouponInvalidInput signals the caller provided invalid data.
	ErrCouponInvalidInput = errors.New("coupon: invalid input")
	// ErrCouponNotFound indicates no coupon exists for the code.
	ErrCouponNotFound = errors.New("coupon: not found")
	// ErrCouponInactive indicates the coupon has been disabled.
	ErrCouponInactive = errors.New("coupon: inactive")
	// ErrCouponExpired indicates now is outside the validity window.
	ErrCouponExpired = errors.New("coupon: outside validity window")
	// ErrCouponMinOrder indicates the order total is below the coupon's minimum.
	ErrCouponMinOrder = errors.New("coupon: minimum order not met")
	// ErrCouponExhausted indicates the global usage limit has been reached.
	ErrCouponExhausted = errors.New("coupon: usage limit reached")
	// ErrCouponUserLimit indicates the per-user usage limit has been reached.
	ErrCouponUserLimit = errors.New("coupon: per-user limit reached")
)

// CouponServiceDeps bundles dependencies required to construct a CouponService.
type CouponServiceDeps struct {
	Coupons repositories.CouponRepository
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type couponService struct {
	coupons repositories.CouponRepository
	clock   func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewCouponService wires a CouponService backed by the provided repository.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, errors.New("coupon service: coupon repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &couponService{
		coupons: deps.Coupons,
		clock:   func() time.Time { return clock().UTC() },
		logger:  logger,
	}, nil
}

func (s *couponService) Validate(ctx context.Context, code string, orderTotal int64, userEmail string) (CouponQuote, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return CouponQuote{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	if orderTotal < 0 {
		return CouponQuote{}, fmt.Errorf("%w: order total must not be negative", ErrCouponInvalidInput)
	}

	coupon, err := s.coupons.FindByCode(ctx, normalized)
	if err != nil {
		if repoErr, ok := err.(repositories.RepositoryError); ok && repoErr.IsNotFound() {
			return CouponQuote{}, fmt.Errorf("%w: %s", ErrCouponNotFound, normalized)
		}
		return CouponQuote{}, err
	}

	if !coupon.IsActive {
		return CouponQuote{}, fmt.Errorf("%w: %s", ErrCouponInactive, coupon.Code)
	}
	now := s.clock()
	if now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil) {
		return CouponQuote{}, fmt.Errorf("%w: %s", ErrCouponExpired, coupon.Code)
	}
	if orderTotal < coupon.MinOrder {
		return CouponQuote{}, fmt.Errorf("%w: add %d more to use %s",
			ErrCouponMinOrder, coupon.MinOrder-orderTotal, coupon.Code)
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return CouponQuote{}, fmt.Errorf("%w: %s", ErrCouponExhausted, coupon.Code)
	}
	if coupon.PerUserUsageLimit != nil {
		email := strings.ToLower(strings.TrimSpace(userEmail))
		if email != "" {
			usage, err := s.coupons.GetUsage(ctx, coupon.ID, email)
			if err != nil {
				return CouponQuote{}, err
			}
			if usage.Count >= *coupon.PerUserUsageLimit {
				return CouponQuote{}, fmt.Errorf("%w: %s", ErrCouponUserLimit, coupon.Code)
			}
		}
	}

	return CouponQuote{
		Coupon:   coupon,
		Discount: CouponDiscount(coupon, orderTotal),
	}, nil
}

func (s *couponService) Apply(ctx context.Context, couponID string, userEmail string) error {
	if strings.TrimSpace(couponID) == "" {
		return fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}
	email := strings.ToLower(strings.TrimSpace(userEmail))
	if email == "" {
		return fmt.Errorf("%w: user email is required", ErrCouponInvalidInput)
	}
	if err := s.coupons.ApplyUsage(ctx, couponID, email, s.clock()); err != nil {
		var couponErr *repositories.CouponError
		if errors.As(err, &couponErr) {
			switch couponErr.Code {
			case repositories.CouponErrorExhausted:
				return fmt.Errorf("%w: %s", ErrCouponExhausted, couponID)
			case repositories.CouponErrorUserLimitReached:
				return fmt.Errorf("%w: %s", ErrCouponUserLimit, couponID)
			case repositories.CouponErrorUnknown:
				return fmt.Errorf("%w: %s", ErrCouponNotFound, couponID)
			}
		}
		return err
	}
	return nil
}

func (s *couponService) Release(ctx context.Context, couponID string, userEmail string) error {
	if strings.TrimSpace(couponID) == "" {
		return fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}
	email := strings.ToLower(strings.TrimSpace(userEmail))
	if email == "" {
		return fmt.Errorf("%w: user email is required", ErrCouponInvalidInput)
	}
	if err := s.coupons.ReleaseUsage(ctx, couponID, email, s.clock()); err != nil {
		s.logger(ctx, "coupon.release.failed", map[string]any{
			"couponId": couponID,
			"error":    err.Error(),
		})
		return err
	}
	return nil
}

// CouponDiscount computes the discount a coupon grants on an order total in
// minor units. Percentage discounts are capped at MaxDiscount when set;
// fixed discounts never exceed the order total. The result is rounded
// half-up exactly once.
func CouponDiscount(coupon domain.Coupon, orderTotal int64) int64 {
	if orderTotal <= 0 {
		return 0
	}
	switch coupon.Type {
	case domain.CouponTypePercentage:
		discount := domain.PercentOf(orderTotal, coupon.Value)
		if coupon.MaxDiscount != nil && discount > *coupon.MaxDiscount {
			discount = *coupon.MaxDiscount
		}
		if discount > orderTotal {
			discount = orderTotal
		}
		return discount
	case domain.CouponTypeFixed:
		discount := domain.RoundHalfUp(coupon.Value)
		if discount > orderTotal {
			discount = orderTotal
		}
		return domain.ClampNonNegative(discount)
	default:
		return 0
	}
}
