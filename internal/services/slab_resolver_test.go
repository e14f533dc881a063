package services

import (
	"testing"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
)

func intPtr(v int) *int {
	return &v
}

func threeTierSlabs() []domain.PricingSlab {
	return []domain.PricingSlab{
		{ID: "s1", ProductID: "fabric-1", MinQuantity: 1, MaxQuantity: intPtr(5), DiscountType: domain.SlabDiscountFixedAmount, DiscountValue: 0, DisplayOrder: 1},
		{ID: "s2", ProductID: "fabric-1", MinQuantity: 6, MaxQuantity: intPtr(10), DiscountType: domain.SlabDiscountFixedAmount, DiscountValue: 500, DisplayOrder: 2},
		{ID: "s3", ProductID: "fabric-1", MinQuantity: 11, DiscountType: domain.SlabDiscountFixedAmount, DiscountValue: 1000, DisplayOrder: 3},
	}
}

func TestSelectSlabBoundaries(t *testing.T) {
	slabs := threeTierSlabs()

	cases := []struct {
		quantity int
		wantID   string
	}{
		{1, "s1"},
		{5, "s1"},
		{6, "s2"},
		{10, "s2"},
		{11, "s3"},
		{500, "s3"},
	}
	for _, tc := range cases {
		slab, ok, warnings := SelectSlab(slabs, tc.quantity)
		if !ok {
			t.Fatalf("quantity %d: expected a slab match", tc.quantity)
		}
		if slab.ID != tc.wantID {
			t.Fatalf("quantity %d: expected slab %s, got %s", tc.quantity, tc.wantID, slab.ID)
		}
		if len(warnings) != 0 {
			t.Fatalf("quantity %d: unexpected warnings %v", tc.quantity, warnings)
		}
	}
}

func TestSelectSlabNoMatchMeansFullPrice(t *testing.T) {
	slabs := []domain.PricingSlab{
		{ID: "s1", ProductID: "fabric-1", MinQuantity: 10, MaxQuantity: intPtr(20)},
	}
	if _, ok, _ := SelectSlab(slabs, 5); ok {
		t.Fatal("expected no slab below the first tier")
	}
	if _, ok, _ := SelectSlab(slabs, 21); ok {
		t.Fatal("expected no slab above the last bounded tier")
	}
	if _, ok, _ := SelectSlab(nil, 5); ok {
		t.Fatal("expected no slab for empty configuration")
	}
}

func TestSelectSlabOverlapPicksDisplayOrderAndWarns(t *testing.T) {
	slabs := []domain.PricingSlab{
		{ID: "late", ProductID: "fabric-1", MinQuantity: 1, MaxQuantity: intPtr(10), DisplayOrder: 5},
		{ID: "early", ProductID: "fabric-1", MinQuantity: 5, MaxQuantity: intPtr(15), DisplayOrder: 1},
	}

	slab, ok, warnings := SelectSlab(slabs, 7)
	if !ok {
		t.Fatal("expected a slab match")
	}
	if slab.ID != "early" {
		t.Fatalf("expected the lowest display order to win, got %s", slab.ID)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one data-integrity warning, got %v", warnings)
	}
}

func TestSlabUnitPriceFixedAmountFloorsAtZero(t *testing.T) {
	slab := domain.PricingSlab{DiscountType: domain.SlabDiscountFixedAmount, DiscountValue: 1500}
	if got := SlabUnitPrice(2000, slab); got != 500 {
		t.Fatalf("expected 500, got %d", got)
	}
	if got := SlabUnitPrice(1000, slab); got != 0 {
		t.Fatalf("expected the unit price floored at zero, got %d", got)
	}
}

func TestSlabUnitPricePercentageRoundsHalfUp(t *testing.T) {
	slab := domain.PricingSlab{DiscountType: domain.SlabDiscountPercentage, DiscountValue: 12.5}
	// 12.5% of 999 = 124.875, rounds to 125.
	if got := SlabUnitPrice(999, slab); got != 874 {
		t.Fatalf("expected 874, got %d", got)
	}
}
