package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	pfirestore "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/firestore"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

const pricingSlabsCollection = "pricingSlabs"

// PricingSlabRepository loads quantity discount tiers per product.
type PricingSlabRepository struct {
	base *pfirestore.BaseRepository[pricingSlabDocument]
}

// NewPricingSlabRepository constructs a Firestore-backed pricing slab repository.
func NewPricingSlabRepository(provider *pfirestore.Provider) (*PricingSlabRepository, error) {
	if provider == nil {
		return nil, errors.New("pricing slab repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[pricingSlabDocument](provider, pricingSlabsCollection, nil, nil)
	return &PricingSlabRepository{base: base}, nil
}

// ListByProduct returns the product's slabs ordered by minimum quantity.
func (r *PricingSlabRepository) ListByProduct(ctx context.Context, productID string) ([]domain.PricingSlab, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("pricing slab repository not initialised")
	}
	pid := strings.TrimSpace(productID)
	if pid == "" {
		return nil, errors.New("pricing slab repository: product id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("productId", "==", pid).OrderBy("minQuantity", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	slabs := make([]domain.PricingSlab, 0, len(docs))
	for _, doc := range docs {
		slabs = append(slabs, doc.Data.toDomain(doc.ID))
	}
	return slabs, nil
}

type pricingSlabDocument struct {
	ProductID     string  `firestore:"productId"`
	MinQuantity   int     `firestore:"minQuantity"`
	MaxQuantity   *int    `firestore:"maxQuantity,omitempty"`
	DiscountType  string  `firestore:"discountType"`
	DiscountValue float64 `firestore:"discountValue"`
	DisplayOrder  int     `firestore:"displayOrder"`
}

func (d pricingSlabDocument) toDomain(id string) domain.PricingSlab {
	return domain.PricingSlab{
		ID:            id,
		ProductID:     d.ProductID,
		MinQuantity:   d.MinQuantity,
		MaxQuantity:   d.MaxQuantity,
		DiscountType:  domain.SlabDiscountType(d.DiscountType),
		DiscountValue: d.DiscountValue,
		DisplayOrder:  d.DisplayOrder,
	}
}

var _ repositories.PricingSlabRepository = (*PricingSlabRepository)(nil)
