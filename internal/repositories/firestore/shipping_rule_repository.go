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

const shippingRulesCollection = "shippingRules"

// ShippingRuleRepository loads the active shipping rule set.
type ShippingRuleRepository struct {
	base *pfirestore.BaseRepository[shippingRuleDocument]
}

// NewShippingRuleRepository constructs a Firestore-backed shipping rule repository.
func NewShippingRuleRepository(provider *pfirestore.Provider) (*ShippingRuleRepository, error) {
	if provider == nil {
		return nil, errors.New("shipping rule repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[shippingRuleDocument](provider, shippingRulesCollection, nil, nil)
	return &ShippingRuleRepository{base: base}, nil
}

// ListActive returns all active rules ordered by priority ascending so the
// resolver can pick the first match deterministically.
func (r *ShippingRuleRepository) ListActive(ctx context.Context) ([]domain.ShippingRule, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("shipping rule repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("isActive", "==", true).OrderBy("priority", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	rules := make([]domain.ShippingRule, 0, len(docs))
	for _, doc := range docs {
		rules = append(rules, doc.Data.toDomain(doc.ID))
	}
	return rules, nil
}

type shippingRuleDocument struct {
	Scope             string                   `firestore:"scope"`
	State             string                   `firestore:"state,omitempty"`
	Calculation       string                   `firestore:"calculation"`
	FlatPrice         int64                    `firestore:"flatPrice"`
	FreeShippingAbove *int64                   `firestore:"freeShippingAbove,omitempty"`
	Priority          int                      `firestore:"priority"`
	IsActive          bool                     `firestore:"isActive"`
	Ranges            []shippingRangeDocument  `firestore:"ranges,omitempty"`
}

type shippingRangeDocument struct {
	MinCartValue  int64  `firestore:"minCartValue"`
	MaxCartValue  *int64 `firestore:"maxCartValue,omitempty"`
	ShippingPrice int64  `firestore:"shippingPrice"`
	DisplayOrder  int    `firestore:"displayOrder"`
}

func (d shippingRuleDocument) toDomain(id string) domain.ShippingRule {
	rule := domain.ShippingRule{
		ID:                id,
		Scope:             domain.ShippingScope(d.Scope),
		State:             strings.TrimSpace(d.State),
		Calculation:       domain.ShippingCalculation(d.Calculation),
		FlatPrice:         d.FlatPrice,
		FreeShippingAbove: d.FreeShippingAbove,
		Priority:          d.Priority,
		IsActive:          d.IsActive,
	}
	if len(d.Ranges) > 0 {
		rule.Ranges = make([]domain.ShippingRange, len(d.Ranges))
		for i, band := range d.Ranges {
			rule.Ranges[i] = domain.ShippingRange{
				MinCartValue:  band.MinCartValue,
				MaxCartValue:  band.MaxCartValue,
				ShippingPrice: band.ShippingPrice,
				DisplayOrder:  band.DisplayOrder,
			}
		}
	}
	return rule
}

var _ repositories.ShippingRuleRepository = (*ShippingRuleRepository)(nil)
