package services

import (
	"fmt"
	"sort"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
)

// SelectSlab picks the quantity pricing slab that contains the requested
// quantity. Slabs for one product must not overlap; when a misconfigured set
// matches more than one, the first by display order wins and a data-integrity
// warning is reported rather than failing the sale. A quantity matching no
// slab means full price.
func SelectSlab(slabs []domain.PricingSlab, quantity int) (domain.PricingSlab, bool, []string) {
	if quantity < 1 || len(slabs) == 0 {
		return domain.PricingSlab{}, false, nil
	}

	var matches []domain.PricingSlab
	for _, slab := range slabs {
		if quantity < slab.MinQuantity {
			continue
		}
		if slab.MaxQuantity != nil && quantity > *slab.MaxQuantity {
			continue
		}
		matches = append(matches, slab)
	}

	switch len(matches) {
	case 0:
		return domain.PricingSlab{}, false, nil
	case 1:
		return matches[0], true, nil
	default:
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].DisplayOrder < matches[j].DisplayOrder
		})
		warning := fmt.Sprintf("product %s has %d overlapping slabs for quantity %d",
			matches[0].ProductID, len(matches), quantity)
		return matches[0], true, []string{warning}
	}
}

// SlabUnitPrice applies a slab's discount to a base unit price, floored at
// zero. FIXED_AMOUNT subtracts a flat amount per unit; PERCENTAGE reduces the
// unit price by that percentage, rounded half-up.
func SlabUnitPrice(baseUnitPrice int64, slab domain.PricingSlab) int64 {
	switch slab.DiscountType {
	case domain.SlabDiscountFixedAmount:
		return domain.ClampNonNegative(baseUnitPrice - domain.RoundHalfUp(slab.DiscountValue))
	case domain.SlabDiscountPercentage:
		return domain.ClampNonNegative(baseUnitPrice - domain.PercentOf(baseUnitPrice, slab.DiscountValue))
	default:
		return baseUnitPrice
	}
}
