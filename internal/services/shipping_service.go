package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

var (
	// ErrShippingInvalidInput signals the caller provided invalid data.
	ErrShippingInvalidInput = errors.New("shipping: invalid input")
	// ErrShippingRulesUnavailable indicates the rule set could not be loaded.
	ErrShippingRulesUnavailable = errors.New("shipping: rules unavailable")
)

// ShippingServiceDeps bundles dependencies required to construct a ShippingService.
type ShippingServiceDeps struct {
	Rules  repositories.ShippingRuleRepository
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type shippingService struct {
	rules  repositories.ShippingRuleRepository
	logger func(context.Context, string, map[string]any)
}

// NewShippingService wires a ShippingService backed by the provided rule repository.
func NewShippingService(deps ShippingServiceDeps) (ShippingService, error) {
	if deps.Rules == nil {
		return nil, errors.New("shipping service: rule repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &shippingService{rules: deps.Rules, logger: logger}, nil
}

func (s *shippingService) Quote(ctx context.Context, cartValue int64, state string) (ShippingQuote, error) {
	if cartValue < 0 {
		return ShippingQuote{}, fmt.Errorf("%w: cart value must not be negative", ErrShippingInvalidInput)
	}

	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return ShippingQuote{}, fmt.Errorf("%w: %v", ErrShippingRulesUnavailable, err)
	}

	quote := ResolveShipping(rules, cartValue, state)
	for _, warning := range quote.Warnings {
		s.logger(ctx, "shipping.config.gap", map[string]any{
			"warning":   warning,
			"cartValue": cartValue,
			"state":     state,
		})
	}
	return quote, nil
}

// ResolveShipping picks the applicable rule and computes the shipping cost
// for the given cart value and destination state. It is deterministic for
// identical inputs: same cart value, state, and rule set always yield the
// same quote regardless of slice order.
//
// Selection: among active rules matching the destination (ALL_INDIA always
// matches; STATE_WISE matches its state case-insensitively), the highest
// priority wins, with STATE_WISE beating ALL_INDIA on ties. Missing
// configuration never blocks checkout: no matching rule, or a RANGE_BASED
// rule with no covering range, resolves to zero cost with a warning.
func ResolveShipping(rules []domain.ShippingRule, cartValue int64, state string) ShippingQuote {
	normalizedState := strings.ToLower(strings.TrimSpace(state))

	var selected *domain.ShippingRule
	for i := range rules {
		rule := &rules[i]
		if !rule.IsActive {
			continue
		}
		switch rule.Scope {
		case domain.ShippingScopeAllIndia:
		case domain.ShippingScopeStateWise:
			if normalizedState == "" || strings.ToLower(strings.TrimSpace(rule.State)) != normalizedState {
				continue
			}
		default:
			continue
		}
		if selected == nil || ruleBeats(*rule, *selected) {
			selected = rule
		}
	}

	if selected == nil {
		return ShippingQuote{Cost: 0, Warnings: []string{"no active shipping rule matched"}}
	}

	quote := ShippingQuote{RuleID: selected.ID}

	if selected.FreeShippingAbove != nil && cartValue >= *selected.FreeShippingAbove {
		quote.FreeShipping = true
		return quote
	}

	switch selected.Calculation {
	case domain.ShippingCalcFlat:
		quote.Cost = selected.FlatPrice
	case domain.ShippingCalcRangeBased:
		matched := false
		for _, band := range selected.Ranges {
			if cartValue < band.MinCartValue {
				continue
			}
			if band.MaxCartValue != nil && cartValue >= *band.MaxCartValue {
				continue
			}
			quote.Cost = band.ShippingPrice
			matched = true
			break
		}
		if !matched {
			quote.Warnings = append(quote.Warnings,
				fmt.Sprintf("rule %s has no range covering cart value %d", selected.ID, cartValue))
		}
	default:
		quote.Warnings = append(quote.Warnings,
			fmt.Sprintf("rule %s has unknown calculation type %q", selected.ID, selected.Calculation))
	}
	return quote
}

func ruleBeats(candidate, incumbent domain.ShippingRule) bool {
	if candidate.Priority != incumbent.Priority {
		return candidate.Priority > incumbent.Priority
	}
	// Ties prefer the more specific scope.
	return candidate.Scope == domain.ShippingScopeStateWise && incumbent.Scope == domain.ShippingScopeAllIndia
}
