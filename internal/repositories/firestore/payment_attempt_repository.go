package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	pfirestore "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/firestore"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

const paymentAttemptsSubcollection = "paymentAttempts"

// PaymentAttemptRepository stores gateway interaction records as a
// subcollection beneath each order document.
type PaymentAttemptRepository struct {
	provider *pfirestore.Provider
}

// NewPaymentAttemptRepository constructs a Firestore-backed attempt repository.
func NewPaymentAttemptRepository(provider *pfirestore.Provider) (*PaymentAttemptRepository, error) {
	if provider == nil {
		return nil, errors.New("payment attempt repository requires firestore provider")
	}
	return &PaymentAttemptRepository{provider: provider}, nil
}

// Insert records a new gateway interaction.
func (r *PaymentAttemptRepository) Insert(ctx context.Context, attempt domain.PaymentAttempt) error {
	ref, err := r.attemptRef(ctx, attempt.OrderID, attempt.ID)
	if err != nil {
		return err
	}
	doc := encodeAttemptDocument(attempt)

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		return pfirestore.WrapError("paymentAttempts.insert", tx.Create(ref, doc))
	}
	_, err = ref.Create(ctx, doc)
	return pfirestore.WrapError("paymentAttempts.insert", err)
}

// Update overwrites an existing attempt record.
func (r *PaymentAttemptRepository) Update(ctx context.Context, attempt domain.PaymentAttempt) error {
	ref, err := r.attemptRef(ctx, attempt.OrderID, attempt.ID)
	if err != nil {
		return err
	}
	doc := encodeAttemptDocument(attempt)

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		return pfirestore.WrapError("paymentAttempts.update", tx.Set(ref, doc))
	}
	_, err = ref.Set(ctx, doc)
	return pfirestore.WrapError("paymentAttempts.update", err)
}

// ListByOrder returns all attempts for an order ordered by creation time.
func (r *PaymentAttemptRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.PaymentAttempt, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("payment attempt repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, errors.New("payment attempt repository: order id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	query := client.Collection(ordersCollection).Doc(id).
		Collection(paymentAttemptsSubcollection).
		OrderBy("createdAt", firestore.Asc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var attempts []domain.PaymentAttempt
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("paymentAttempts.list", err)
		}
		var doc attemptDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("paymentAttempts.list: decode %s: %w", snap.Ref.ID, err)
		}
		attempts = append(attempts, doc.toDomain(snap.Ref.ID, id))
	}
	return attempts, nil
}

func (r *PaymentAttemptRepository) attemptRef(ctx context.Context, orderID, attemptID string) (*firestore.DocumentRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("payment attempt repository not initialised")
	}
	oid := strings.TrimSpace(orderID)
	if oid == "" {
		return nil, errors.New("payment attempt repository: order id is required")
	}
	aid := strings.TrimSpace(attemptID)
	if aid == "" {
		return nil, errors.New("payment attempt repository: attempt id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(ordersCollection).Doc(oid).Collection(paymentAttemptsSubcollection).Doc(aid), nil
}

type attemptDocument struct {
	Gateway        string         `firestore:"gateway"`
	GatewayOrderID string         `firestore:"gatewayOrderId,omitempty"`
	GatewayTxnID   string         `firestore:"gatewayTxnId,omitempty"`
	Status         string         `firestore:"status"`
	RawPayload     map[string]any `firestore:"rawPayload,omitempty"`
	CreatedAt      time.Time      `firestore:"createdAt"`
}

func encodeAttemptDocument(attempt domain.PaymentAttempt) attemptDocument {
	return attemptDocument{
		Gateway:        strings.TrimSpace(attempt.Gateway),
		GatewayOrderID: strings.TrimSpace(attempt.GatewayOrderID),
		GatewayTxnID:   strings.TrimSpace(attempt.GatewayTxnID),
		Status:         string(attempt.Status),
		RawPayload:     attempt.RawPayload,
		CreatedAt:      attempt.CreatedAt.UTC(),
	}
}

func (d attemptDocument) toDomain(id, orderID string) domain.PaymentAttempt {
	return domain.PaymentAttempt{
		ID:             id,
		OrderID:        orderID,
		Gateway:        d.Gateway,
		GatewayOrderID: d.GatewayOrderID,
		GatewayTxnID:   d.GatewayTxnID,
		Status:         domain.PaymentAttemptStatus(d.Status),
		RawPayload:     d.RawPayload,
		CreatedAt:      d.CreatedAt,
	}
}

var _ repositories.PaymentAttemptRepository = (*PaymentAttemptRepository)(nil)
