package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

type notFoundError struct{}

func (notFoundError) Error() string       { return "not found" }
func (notFoundError) IsNotFound() bool    { return true }
func (notFoundError) IsConflict() bool    { return false }
func (notFoundError) IsUnavailable() bool { return false }

type stubCouponRepo struct {
	coupon   domain.Coupon
	found    bool
	usage    domain.CouponUsage
	applyErr error
}

func (s *stubCouponRepo) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if !s.found {
		return domain.Coupon{}, notFoundError{}
	}
	return s.coupon, nil
}

func (s *stubCouponRepo) GetUsage(ctx context.Context, couponID, userEmail string) (domain.CouponUsage, error) {
	return s.usage, nil
}

func (s *stubCouponRepo) ApplyUsage(ctx context.Context, couponID, userEmail string, now time.Time) error {
	return s.applyErr
}

func (s *stubCouponRepo) ReleaseUsage(ctx context.Context, couponID, userEmail string, now time.Time) error {
	return nil
}

var _ repositories.CouponRepository = (*stubCouponRepo)(nil)

func testClock() func() time.Time {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func validCoupon() domain.Coupon {
	return domain.Coupon{
		ID:        "cpn_1",
		Code:      "SAVE10",
		Type:      domain.CouponTypePercentage,
		Value:     10,
		IsActive:  true,
		ValidFrom: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil: time.Date(2026, time.December, 31, 23, 59, 59, 0,
			time.UTC),
	}
}

func newTestCouponService(t *testing.T, repo repositories.CouponRepository) CouponService {
	t.Helper()
	svc, err := NewCouponService(CouponServiceDeps{Coupons: repo, Clock: testClock()})
	if err != nil {
		t.Fatalf("NewCouponService: %v", err)
	}
	return svc
}

func TestCouponValidateUnknownCode(t *testing.T) {
	svc := newTestCouponService(t, &stubCouponRepo{})
	if _, err := svc.Validate(context.Background(), "NOPE", 100_000, "a@b.in"); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestCouponValidateInactive(t *testing.T) {
	coupon := validCoupon()
	coupon.IsActive = false
	svc := newTestCouponService(t, &stubCouponRepo{coupon: coupon, found: true})
	if _, err := svc.Validate(context.Background(), "SAVE10", 100_000, "a@b.in"); !errors.Is(err, ErrCouponInactive) {
		t.Fatalf("expected ErrCouponInactive, got %v", err)
	}
}

func TestCouponValidateOutsideWindow(t *testing.T) {
	coupon := validCoupon()
	coupon.ValidUntil = time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	svc := newTestCouponService(t, &stubCouponRepo{coupon: coupon, found: true})
	if _, err := svc.Validate(context.Background(), "SAVE10", 100_000, "a@b.in"); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("expected ErrCouponExpired, got %v", err)
	}
}

func TestCouponValidateMinOrderShortfall(t *testing.T) {
	coupon := validCoupon()
	coupon.MinOrder = 150_000
	svc := newTestCouponService(t, &stubCouponRepo{coupon: coupon, found: true})
	if _, err := svc.Validate(context.Background(), "SAVE10", 100_000, "a@b.in"); !errors.Is(err, ErrCouponMinOrder) {
		t.Fatalf("expected ErrCouponMinOrder, got %v", err)
	}
}

func TestCouponValidateExhausted(t *testing.T) {
	coupon := validCoupon()
	limit := 5
	coupon.UsageLimit = &limit
	coupon.UsedCount = 5
	svc := newTestCouponService(t, &stubCouponRepo{coupon: coupon, found: true})
	if _, err := svc.Validate(context.Background(), "SAVE10", 100_000, "a@b.in"); !errors.Is(err, ErrCouponExhausted) {
		t.Fatalf("expected ErrCouponExhausted, got %v", err)
	}
}

func TestCouponValidatePerUserLimit(t *testing.T) {
	coupon := validCoupon()
	perUser := 1
	coupon.PerUserUsageLimit = &perUser
	repo := &stubCouponRepo{coupon: coupon, found: true, usage: domain.CouponUsage{Count: 1}}
	svc := newTestCouponService(t, repo)
	if _, err := svc.Validate(context.Background(), "SAVE10", 100_000, "a@b.in"); !errors.Is(err, ErrCouponUserLimit) {
		t.Fatalf("expected ErrCouponUserLimit, got %v", err)
	}
}

func TestCouponValidateNormalisesCode(t *testing.T) {
	svc := newTestCouponService(t, &stubCouponRepo{coupon: validCoupon(), found: true})
	quote, err := svc.Validate(context.Background(), "  save10 ", 100_000, "a@b.in")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if quote.Discount != 10_000 {
		t.Fatalf("expected 10%% of 100000, got %d", quote.Discount)
	}
}

func TestCouponDiscountPercentageCappedAtMax(t *testing.T) {
	coupon := validCoupon()
	maxDiscount := int64(8000)
	coupon.MaxDiscount = &maxDiscount

	// 10% of 100000 is 10000, capped at 8000.
	if got := CouponDiscount(coupon, 100_000); got != 8000 {
		t.Fatalf("expected capped discount 8000, got %d", got)
	}
	// Below the cap the percentage applies untouched.
	if got := CouponDiscount(coupon, 50_000); got != 5000 {
		t.Fatalf("expected 5000, got %d", got)
	}
}

func TestCouponDiscountPercentageRoundsHalfUpOnce(t *testing.T) {
	coupon := validCoupon()
	coupon.Value = 7.5
	// 7.5% of 999 = 74.925, rounds to 75.
	if got := CouponDiscount(coupon, 999); got != 75 {
		t.Fatalf("expected 75, got %d", got)
	}
}

func TestCouponDiscountFixedNeverExceedsTotal(t *testing.T) {
	coupon := validCoupon()
	coupon.Type = domain.CouponTypeFixed
	coupon.Value = 50_000

	if got := CouponDiscount(coupon, 30_000); got != 30_000 {
		t.Fatalf("expected the discount clamped to the total, got %d", got)
	}
	if got := CouponDiscount(coupon, 80_000); got != 50_000 {
		t.Fatalf("expected 50000, got %d", got)
	}
}

func TestCouponApplyMapsRepositoryCodes(t *testing.T) {
	cases := []struct {
		code repositories.CouponErrorCode
		want error
	}{
		{repositories.CouponErrorExhausted, ErrCouponExhausted},
		{repositories.CouponErrorUserLimitReached, ErrCouponUserLimit},
		{repositories.CouponErrorUnknown, ErrCouponNotFound},
	}
	for _, tc := range cases {
		repo := &stubCouponRepo{applyErr: repositories.NewCouponError(tc.code, "coupon", nil)}
		svc := newTestCouponService(t, repo)
		if err := svc.Apply(context.Background(), "cpn_1", "a@b.in"); !errors.Is(err, tc.want) {
			t.Fatalf("code %s: expected %v, got %v", tc.code, tc.want, err)
		}
	}
}

func TestCouponApplyRequiresIdentity(t *testing.T) {
	svc := newTestCouponService(t, &stubCouponRepo{})
	if err := svc.Apply(context.Background(), "cpn_1", "  "); !errors.Is(err, ErrCouponInvalidInput) {
		t.Fatalf("expected ErrCouponInvalidInput, got %v", err)
	}
}
