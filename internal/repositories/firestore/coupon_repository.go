package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	pfirestore "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/firestore"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

const (
	couponsCollection     = "coupons"
	couponUsageCollection = "usages"
)

// CouponRepository stores coupon definitions with per-user usage rows kept in
// a subcollection so both counters can be read and bumped in one transaction.
type CouponRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[couponDocument]
}

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection, nil, nil)
	return &CouponRepository{provider: provider, base: base}, nil
}

// FindByCode resolves a coupon by its normalised code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if r == nil || r.base == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	normalized := normalizeCouponCode(code)
	if normalized == "" {
		return domain.Coupon{}, errors.New("coupon repository: code is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", normalized).Limit(1)
	})
	if err != nil {
		return domain.Coupon{}, err
	}
	if len(docs) == 0 {
		return domain.Coupon{}, pfirestore.WrapError("coupons.findByCode", notFoundError(normalized))
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

// GetUsage returns the per-user redemption row, zero-valued when the user has
// never redeemed the coupon.
func (r *CouponRepository) GetUsage(ctx context.Context, couponID string, userEmail string) (domain.CouponUsage, error) {
	ref, err := r.usageRef(ctx, couponID, userEmail)
	if err != nil {
		return domain.CouponUsage{}, err
	}

	var snap *firestore.DocumentSnapshot
	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		snap, err = tx.Get(ref)
	} else {
		snap, err = ref.Get(ctx)
	}
	if status.Code(err) == codes.NotFound {
		return domain.CouponUsage{
			CouponID:  strings.TrimSpace(couponID),
			UserEmail: normalizeEmail(userEmail),
		}, nil
	}
	if err != nil {
		return domain.CouponUsage{}, pfirestore.WrapError("coupons.getUsage", err)
	}

	var doc couponUsageDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.CouponUsage{}, fmt.Errorf("coupons.getUsage: decode: %w", err)
	}
	return domain.CouponUsage{
		CouponID:  strings.TrimSpace(couponID),
		UserEmail: normalizeEmail(userEmail),
		Count:     doc.Count,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// ApplyUsage re-reads the coupon and the caller's usage row, re-validates
// both limits against current counts, and increments them. It must run
// inside a transaction so concurrent redemptions of the final slot serialise;
// the loser observes the bumped count and fails with CouponErrorExhausted.
func (r *CouponRepository) ApplyUsage(ctx context.Context, couponID string, userEmail string, now time.Time) error {
	tx, ok := pfirestore.TransactionFrom(ctx)
	if !ok {
		return errors.New("coupon repository: ApplyUsage requires an active transaction")
	}

	couponRef, usageRef, err := r.refs(ctx, couponID, userEmail)
	if err != nil {
		return err
	}

	couponSnap, err := tx.Get(couponRef)
	if err != nil {
		return pfirestore.WrapError("coupons.applyUsage", err)
	}
	var coupon couponDocument
	if err := couponSnap.DataTo(&coupon); err != nil {
		return fmt.Errorf("coupons.applyUsage: decode coupon: %w", err)
	}

	usageCount := 0
	usageSnap, err := tx.Get(usageRef)
	switch status.Code(err) {
	case codes.NotFound:
		// first redemption for this user
	case codes.OK:
		var usage couponUsageDocument
		if err := usageSnap.DataTo(&usage); err != nil {
			return fmt.Errorf("coupons.applyUsage: decode usage: %w", err)
		}
		usageCount = usage.Count
	default:
		return pfirestore.WrapError("coupons.applyUsage", err)
	}

	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return repositories.NewCouponError(repositories.CouponErrorExhausted,
			fmt.Sprintf("coupon %s usage limit %d reached", coupon.Code, *coupon.UsageLimit), nil)
	}
	if coupon.PerUserUsageLimit != nil && usageCount >= *coupon.PerUserUsageLimit {
		return repositories.NewCouponError(repositories.CouponErrorUserLimitReached,
			fmt.Sprintf("coupon %s per-user limit %d reached", coupon.Code, *coupon.PerUserUsageLimit), nil)
	}

	if err := tx.Update(couponRef, []firestore.Update{
		{Path: "usedCount", Value: firestore.Increment(1)},
		{Path: "updatedAt", Value: now.UTC()},
	}); err != nil {
		return pfirestore.WrapError("coupons.applyUsage", err)
	}
	if err := tx.Set(usageRef, couponUsageDocument{
		Count:     usageCount + 1,
		UpdatedAt: now.UTC(),
	}); err != nil {
		return pfirestore.WrapError("coupons.applyUsage", err)
	}
	return nil
}

// ReleaseUsage decrements the counters bumped by ApplyUsage, used when order
// creation fails after the redemption was recorded or when a paid order is
// refunded. Counts never go below zero.
func (r *CouponRepository) ReleaseUsage(ctx context.Context, couponID string, userEmail string, now time.Time) error {
	couponRef, usageRef, err := r.refs(ctx, couponID, userEmail)
	if err != nil {
		return err
	}

	release := func(ctx context.Context, tx *firestore.Transaction) error {
		couponSnap, err := tx.Get(couponRef)
		if err != nil {
			return err
		}
		var coupon couponDocument
		if err := couponSnap.DataTo(&coupon); err != nil {
			return fmt.Errorf("decode coupon: %w", err)
		}

		usageCount := 0
		usageSnap, err := tx.Get(usageRef)
		switch status.Code(err) {
		case codes.NotFound:
		case codes.OK:
			var usage couponUsageDocument
			if err := usageSnap.DataTo(&usage); err != nil {
				return fmt.Errorf("decode usage: %w", err)
			}
			usageCount = usage.Count
		default:
			return err
		}

		if coupon.UsedCount > 0 {
			if err := tx.Update(couponRef, []firestore.Update{
				{Path: "usedCount", Value: firestore.Increment(-1)},
				{Path: "updatedAt", Value: now.UTC()},
			}); err != nil {
				return err
			}
		}
		if usageCount > 0 {
			if err := tx.Set(usageRef, couponUsageDocument{
				Count:     usageCount - 1,
				UpdatedAt: now.UTC(),
			}); err != nil {
				return err
			}
		}
		return nil
	}

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		return pfirestore.WrapError("coupons.releaseUsage", release(ctx, tx))
	}
	return pfirestore.WrapError("coupons.releaseUsage", r.provider.RunTransaction(ctx, release))
}

func (r *CouponRepository) refs(ctx context.Context, couponID, userEmail string) (*firestore.DocumentRef, *firestore.DocumentRef, error) {
	if r == nil || r.provider == nil {
		return nil, nil, errors.New("coupon repository not initialised")
	}
	id := strings.TrimSpace(couponID)
	if id == "" {
		return nil, nil, errors.New("coupon repository: coupon id is required")
	}
	email := normalizeEmail(userEmail)
	if email == "" {
		return nil, nil, errors.New("coupon repository: user email is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, nil, err
	}
	couponRef := client.Collection(couponsCollection).Doc(id)
	usageRef := couponRef.Collection(couponUsageCollection).Doc(usageDocID(email))
	return couponRef, usageRef, nil
}

func (r *CouponRepository) usageRef(ctx context.Context, couponID, userEmail string) (*firestore.DocumentRef, error) {
	_, usageRef, err := r.refs(ctx, couponID, userEmail)
	return usageRef, err
}

// usageDocID makes the email safe for use as a document ID.
func usageDocID(email string) string {
	return strings.ReplaceAll(email, "/", "_")
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type couponDocument struct {
	Code              string    `firestore:"code"`
	Type              string    `firestore:"type"`
	Value             float64   `firestore:"value"`
	MinOrder          int64     `firestore:"minOrder"`
	MaxDiscount       *int64    `firestore:"maxDiscount,omitempty"`
	UsageLimit        *int      `firestore:"usageLimit,omitempty"`
	PerUserUsageLimit *int      `firestore:"perUserUsageLimit,omitempty"`
	UsedCount         int       `firestore:"usedCount"`
	ValidFrom         time.Time `firestore:"validFrom"`
	ValidUntil        time.Time `firestore:"validUntil"`
	IsActive          bool      `firestore:"isActive"`
	UpdatedAt         time.Time `firestore:"updatedAt,omitempty"`
}

type couponUsageDocument struct {
	Count     int       `firestore:"count"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (d couponDocument) toDomain(id string) domain.Coupon {
	return domain.Coupon{
		ID:                id,
		Code:              d.Code,
		Type:              domain.CouponType(d.Type),
		Value:             d.Value,
		MinOrder:          d.MinOrder,
		MaxDiscount:       d.MaxDiscount,
		UsageLimit:        d.UsageLimit,
		PerUserUsageLimit: d.PerUserUsageLimit,
		UsedCount:         d.UsedCount,
		ValidFrom:         d.ValidFrom,
		ValidUntil:        d.ValidUntil,
		IsActive:          d.IsActive,
	}
}

var _ repositories.CouponRepository = (*CouponRepository)(nil)
