package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
	pfirestore "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/firestore"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

const cartsCollection = "carts"

// CartRepository stores carts keyed by the normalised user email.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartsCollection, nil, nil)
	return &CartRepository{base: base}, nil
}

// Upsert replaces the cart document for the user.
func (r *CartRepository) Upsert(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	email := normalizeEmail(cart.UserEmail)
	if email == "" {
		return domain.Cart{}, errors.New("cart repository: user email is required")
	}

	updatedAt := cart.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	doc := cartDocument{
		Lines:     encodeCartLines(cart.Lines),
		UpdatedAt: updatedAt,
	}
	if _, err := r.base.Set(ctx, cartDocumentID(email), doc); err != nil {
		return domain.Cart{}, err
	}
	return domain.Cart{UserEmail: email, Lines: cart.Lines, UpdatedAt: updatedAt}, nil
}

// Get loads the user's cart. A missing document is returned as an empty cart.
func (r *CartRepository) Get(ctx context.Context, userEmail string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	email := normalizeEmail(userEmail)
	if email == "" {
		return domain.Cart{}, errors.New("cart repository: user email is required")
	}

	doc, err := r.base.Get(ctx, cartDocumentID(email))
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Cart{UserEmail: email}, nil
		}
		return domain.Cart{}, err
	}

	return domain.Cart{
		UserEmail: email,
		Lines:     decodeCartLines(doc.Data.Lines),
		UpdatedAt: doc.Data.UpdatedAt,
	}, nil
}

// Delete removes the user's cart, typically after checkout converts it to an
// order. Deleting an absent cart is not an error.
func (r *CartRepository) Delete(ctx context.Context, userEmail string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	email := normalizeEmail(userEmail)
	if email == "" {
		return errors.New("cart repository: user email is required")
	}

	ref, err := r.base.DocumentRef(ctx, cartDocumentID(email))
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return pfirestore.WrapError("carts.delete", err)
	}
	return nil
}

func cartDocumentID(email string) string {
	return strings.ReplaceAll(email, "/", "_")
}

type cartDocument struct {
	Lines     []cartLineDocument `firestore:"lines"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type cartLineDocument struct {
	ProductType string            `firestore:"productType"`
	ProductID   string            `firestore:"productId"`
	ProductName string            `firestore:"productName"`
	Quantity    int               `firestore:"quantity"`
	UnitPrice   int64             `firestore:"unitPrice"`
	GSTRate     float64           `firestore:"gstRate"`
	Variants    []variantDocument `firestore:"variants,omitempty"`
	DesignID    string            `firestore:"designId,omitempty"`
	FabricID    string            `firestore:"fabricId,omitempty"`
}

func encodeCartLines(lines []domain.CartLine) []cartLineDocument {
	out := make([]cartLineDocument, len(lines))
	for i, line := range lines {
		out[i] = cartLineDocument{
			ProductType: string(line.ProductType),
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			GSTRate:     line.GSTRate,
			Variants:    encodeVariants(line.Variants),
			DesignID:    line.DesignID,
			FabricID:    line.FabricID,
		}
	}
	return out
}

func decodeCartLines(lines []cartLineDocument) []domain.CartLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]domain.CartLine, len(lines))
	for i, line := range lines {
		out[i] = domain.CartLine{
			ProductType: domain.ProductType(line.ProductType),
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			GSTRate:     line.GSTRate,
			Variants:    decodeVariants(line.Variants),
			DesignID:    line.DesignID,
			FabricID:    line.FabricID,
		}
	}
	return out
}

var _ repositories.CartRepository = (*CartRepository)(nil)
