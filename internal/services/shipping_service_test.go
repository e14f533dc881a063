package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
)

type stubShippingRules struct {
	rules []domain.ShippingRule
	err   error
}

func (s *stubShippingRules) ListActive(context.Context) ([]domain.ShippingRule, error) {
	return s.rules, s.err
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestResolveShippingPrefersStateWiseOnHigherPriority(t *testing.T) {
	rules := []domain.ShippingRule{
		{ID: "all-india", Scope: domain.ShippingScopeAllIndia, Calculation: domain.ShippingCalcFlat, FlatPrice: 5000, Priority: 1, IsActive: true},
		{ID: "delhi", Scope: domain.ShippingScopeStateWise, State: "Delhi", Calculation: domain.ShippingCalcFlat, FlatPrice: 3000, Priority: 10, IsActive: true},
	}

	quote := ResolveShipping(rules, 100_000, "delhi")
	if quote.RuleID != "delhi" {
		t.Fatalf("expected delhi rule, got %q", quote.RuleID)
	}
	if quote.Cost != 3000 {
		t.Fatalf("expected cost 3000, got %d", quote.Cost)
	}
}

func TestResolveShippingStateWiseWinsPriorityTie(t *testing.T) {
	rules := []domain.ShippingRule{
		{ID: "all-india", Scope: domain.ShippingScopeAllIndia, Calculation: domain.ShippingCalcFlat, FlatPrice: 5000, Priority: 5, IsActive: true},
		{ID: "mh", Scope: domain.ShippingScopeStateWise, State: "Maharashtra", Calculation: domain.ShippingCalcFlat, FlatPrice: 2000, Priority: 5, IsActive: true},
	}

	quote := ResolveShipping(rules, 50_000, "Maharashtra")
	if quote.RuleID != "mh" {
		t.Fatalf("expected state rule to win the tie, got %q", quote.RuleID)
	}
}

func TestResolveShippingIgnoresOtherStatesAndInactiveRules(t *testing.T) {
	rules := []domain.ShippingRule{
		{ID: "delhi", Scope: domain.ShippingScopeStateWise, State: "Delhi", Calculation: domain.ShippingCalcFlat, FlatPrice: 1000, Priority: 10, IsActive: true},
		{ID: "disabled", Scope: domain.ShippingScopeAllIndia, Calculation: domain.ShippingCalcFlat, FlatPrice: 2000, Priority: 20, IsActive: false},
		{ID: "fallback", Scope: domain.ShippingScopeAllIndia, Calculation: domain.ShippingCalcFlat, FlatPrice: 4000, Priority: 1, IsActive: true},
	}

	quote := ResolveShipping(rules, 50_000, "Karnataka")
	if quote.RuleID != "fallback" {
		t.Fatalf("expected fallback rule, got %q", quote.RuleID)
	}
	if quote.Cost != 4000 {
		t.Fatalf("expected cost 4000, got %d", quote.Cost)
	}
}

func TestResolveShippingNoRulesFailsOpen(t *testing.T) {
	quote := ResolveShipping(nil, 75_000, "Delhi")
	if quote.Cost != 0 {
		t.Fatalf("expected zero cost with no rules, got %d", quote.Cost)
	}
	if len(quote.Warnings) == 0 {
		t.Fatal("expected a configuration warning")
	}
}

func TestResolveShippingFreeAboveThreshold(t *testing.T) {
	rules := []domain.ShippingRule{
		{
			ID: "free", Scope: domain.ShippingScopeAllIndia, Calculation: domain.ShippingCalcFlat,
			FlatPrice: 5000, FreeShippingAbove: int64Ptr(100_000), Priority: 1, IsActive: true,
		},
	}

	quote := ResolveShipping(rules, 100_000, "")
	if !quote.FreeShipping || quote.Cost != 0 {
		t.Fatalf("expected free shipping at threshold, got cost %d free=%v", quote.Cost, quote.FreeShipping)
	}

	quote = ResolveShipping(rules, 99_999, "")
	if quote.FreeShipping || quote.Cost != 5000 {
		t.Fatalf("expected flat 5000 below threshold, got cost %d free=%v", quote.Cost, quote.FreeShipping)
	}
}

func TestResolveShippingRangeBased(t *testing.T) {
	rule := domain.ShippingRule{
		ID: "ranged", Scope: domain.ShippingScopeAllIndia, Calculation: domain.ShippingCalcRangeBased,
		Priority: 1, IsActive: true,
		Ranges: []domain.ShippingRange{
			{MinCartValue: 0, MaxCartValue: int64Ptr(50_000), ShippingPrice: 9000},
			{MinCartValue: 50_000, MaxCartValue: int64Ptr(100_000), ShippingPrice: 5000},
			{MinCartValue: 100_000, ShippingPrice: 0},
		},
	}

	cases := []struct {
		cartValue int64
		want      int64
	}{
		{0, 9000},
		{49_999, 9000},
		{50_000, 5000},
		{99_999, 5000},
		{100_000, 0},
		{1_000_000, 0},
	}
	for _, tc := range cases {
		quote := ResolveShipping([]domain.ShippingRule{rule}, tc.cartValue, "")
		if quote.Cost != tc.want {
			t.Fatalf("cart value %d: expected cost %d, got %d", tc.cartValue, tc.want, quote.Cost)
		}
	}
}

func TestResolveShippingRangeGapWarnsAndFailsOpen(t *testing.T) {
	rule := domain.ShippingRule{
		ID: "gapped", Scope: domain.ShippingScopeAllIndia, Calculation: domain.ShippingCalcRangeBased,
		Priority: 1, IsActive: true,
		Ranges: []domain.ShippingRange{
			{MinCartValue: 10_000, MaxCartValue: int64Ptr(50_000), ShippingPrice: 5000},
		},
	}

	quote := ResolveShipping([]domain.ShippingRule{rule}, 5000, "")
	if quote.Cost != 0 {
		t.Fatalf("expected zero cost for uncovered value, got %d", quote.Cost)
	}
	if len(quote.Warnings) == 0 {
		t.Fatal("expected a configuration gap warning")
	}
}

func TestResolveShippingDeterministic(t *testing.T) {
	rules := []domain.ShippingRule{
		{ID: "a", Scope: domain.ShippingScopeAllIndia, Calculation: domain.ShippingCalcFlat, FlatPrice: 4000, Priority: 2, IsActive: true},
		{ID: "b", Scope: domain.ShippingScopeStateWise, State: "Delhi", Calculation: domain.ShippingCalcFlat, FlatPrice: 3000, Priority: 7, IsActive: true},
		{ID: "c", Scope: domain.ShippingScopeAllIndia, Calculation: domain.ShippingCalcFlat, FlatPrice: 6000, Priority: 4, IsActive: true},
	}
	reversed := []domain.ShippingRule{rules[2], rules[1], rules[0]}

	first := ResolveShipping(rules, 42_000, "Delhi")
	second := ResolveShipping(reversed, 42_000, "Delhi")
	if first.RuleID != second.RuleID || first.Cost != second.Cost {
		t.Fatalf("resolution depends on rule order: %+v vs %+v", first, second)
	}
}

func TestShippingServiceQuoteRejectsNegativeCartValue(t *testing.T) {
	svc, err := NewShippingService(ShippingServiceDeps{Rules: &stubShippingRules{}})
	if err != nil {
		t.Fatalf("NewShippingService: %v", err)
	}
	if _, err := svc.Quote(context.Background(), -1, ""); !errors.Is(err, ErrShippingInvalidInput) {
		t.Fatalf("expected ErrShippingInvalidInput, got %v", err)
	}
}

func TestShippingServiceQuoteWrapsRepositoryFailure(t *testing.T) {
	svc, err := NewShippingService(ShippingServiceDeps{
		Rules: &stubShippingRules{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewShippingService: %v", err)
	}
	if _, err := svc.Quote(context.Background(), 1000, "Delhi"); !errors.Is(err, ErrShippingRulesUnavailable) {
		t.Fatalf("expected ErrShippingRulesUnavailable, got %v", err)
	}
}
