package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
)

type txContextKey struct{}

// WithTransaction returns a context carrying the active transaction so
// repositories invoked further down the call chain join it.
func WithTransaction(ctx context.Context, tx *firestore.Transaction) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TransactionFrom extracts the active transaction from the context, if any.
func TransactionFrom(ctx context.Context) (*firestore.Transaction, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*firestore.Transaction)
	return tx, ok && tx != nil
}

// UnitOfWork runs a function with all repository operations joined into a
// single Firestore transaction.
type UnitOfWork struct {
	provider *Provider
}

// NewUnitOfWork constructs a UnitOfWork over the shared provider.
func NewUnitOfWork(provider *Provider) *UnitOfWork {
	return &UnitOfWork{provider: provider}
}

// Run executes fn inside a transaction. The transaction is stashed in the
// context so transaction-aware repositories route reads and writes through
// it. Nested calls reuse the outer transaction.
func (u *UnitOfWork) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TransactionFrom(ctx); ok {
		return fn(ctx)
	}
	return u.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(WithTransaction(ctx, tx))
	})
}
