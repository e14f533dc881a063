package firestore

import (
	"context"
	"encoding/base64"
	"encoding/json"
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

const ordersCollection = "orders"

// OrderRepository persists order documents in Firestore. When the context
// carries an active transaction all reads and writes join it.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{base: base, provider: provider}, nil
}

// Insert creates the order document. It fails with a conflict error when a
// document with the same ID already exists.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}

	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	doc := encodeOrderDocument(order)

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		return pfirestore.WrapError("orders.insert", tx.Create(ref, doc))
	}
	_, err = ref.Create(ctx, doc)
	return pfirestore.WrapError("orders.insert", err)
}

// Update overwrites the order document with the supplied state.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}

	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	doc := encodeOrderDocument(order)

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		return pfirestore.WrapError("orders.update", tx.Set(ref, doc))
	}
	_, err = ref.Set(ctx, doc)
	return pfirestore.WrapError("orders.update", err)
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return domain.Order{}, err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return domain.Order{}, pfirestore.WrapError("orders.get", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.Order{}, fmt.Errorf("orders.get: decode %s: %w", id, err)
		}
		return doc.toDomain(id), nil
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByGatewayOrderID resolves the order created for a gateway order
// reference, used by webhook reconciliation.
func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	ref := strings.TrimSpace(gatewayOrderID)
	if ref == "" {
		return domain.Order{}, errors.New("order repository: gateway order id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("gatewayOrderId", "==", ref).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.WrapError("orders.findByGatewayOrderId", notFoundError(ref))
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

// FindByOrderNumber resolves an order by its human-readable number.
func (r *OrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return domain.Order{}, errors.New("order repository: order number is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderNumber", "==", number).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.WrapError("orders.findByOrderNumber", notFoundError(number))
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

// List returns orders for the filter ordered by creation time descending.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	query := client.Collection(ordersCollection).Query
	if email := strings.ToLower(strings.TrimSpace(filter.UserEmail)); email != "" {
		query = query.Where("userEmail", "==", email)
	}
	if len(filter.Status) == 1 {
		query = query.Where("status", "==", string(filter.Status[0]))
	} else if len(filter.Status) > 1 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		query = query.Where("status", "in", statuses)
	}
	if len(filter.PaymentStatus) == 1 {
		query = query.Where("paymentStatus", "==", string(filter.PaymentStatus[0]))
	} else if len(filter.PaymentStatus) > 1 {
		statuses := make([]string, len(filter.PaymentStatus))
		for i, s := range filter.PaymentStatus {
			statuses[i] = string(s)
		}
		query = query.Where("paymentStatus", "in", statuses)
	}

	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
		query = query.Limit(fetchLimit)
	}

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		decoded, err := decodeOrderPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("orders.list: invalid page token: %w", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var items []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("orders.list: decode %s: %w", snap.Ref.ID, err)
		}
		items = append(items, doc.toDomain(snap.Ref.ID))
	}

	nextToken := ""
	if limit > 0 && len(items) == fetchLimit {
		last := items[len(items)-1]
		encoded, err := encodeOrderPageToken(orderPageToken{ID: last.ID, CreatedAt: last.CreatedAt.UTC()})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		nextToken = encoded
		items = items[:len(items)-1]
	}

	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

type orderPageToken struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

func encodeOrderPageToken(token orderPageToken) (string, error) {
	data, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("encode order page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeOrderPageToken(encoded string) (*orderPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode order page token: %w", err)
	}
	var token orderPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode order page token json: %w", err)
	}
	return &token, nil
}

type orderDocument struct {
	OrderNumber    string              `firestore:"orderNumber"`
	UserEmail      string              `firestore:"userEmail"`
	ShippingState  string              `firestore:"shippingState,omitempty"`
	Items          []orderItemDocument `firestore:"items"`
	Subtotal       int64               `firestore:"subtotal"`
	GST            int64               `firestore:"gst"`
	Shipping       int64               `firestore:"shipping"`
	CouponCode     string              `firestore:"couponCode,omitempty"`
	CouponDiscount int64               `firestore:"couponDiscount"`
	Total          int64               `firestore:"total"`
	Status         string              `firestore:"status"`
	PaymentStatus  string              `firestore:"paymentStatus"`
	PaymentMethod  string              `firestore:"paymentMethod,omitempty"`
	GatewayOrderID string              `firestore:"gatewayOrderId,omitempty"`
	GatewayTxnID   string              `firestore:"gatewayTxnId,omitempty"`
	Invoice        *invoiceDocument    `firestore:"invoice,omitempty"`
	NeedsReview    bool                `firestore:"needsReview"`
	CancelReason   string              `firestore:"cancelReason,omitempty"`
	CreatedAt      time.Time           `firestore:"createdAt"`
	UpdatedAt      time.Time           `firestore:"updatedAt"`
	PaidAt         *time.Time          `firestore:"paidAt,omitempty"`
	CancelledAt    *time.Time          `firestore:"cancelledAt,omitempty"`
	DeliveredAt    *time.Time          `firestore:"deliveredAt,omitempty"`
	RefundedAt     *time.Time          `firestore:"refundedAt,omitempty"`
}

type orderItemDocument struct {
	ProductType  string            `firestore:"productType"`
	ProductID    string            `firestore:"productId"`
	ProductName  string            `firestore:"productName"`
	Quantity     int               `firestore:"quantity"`
	UnitPrice    int64             `firestore:"unitPrice"`
	SlabDiscount int64             `firestore:"slabDiscount"`
	GSTRate      float64           `firestore:"gstRate"`
	GSTAmount    int64             `firestore:"gstAmount"`
	LineSubtotal int64             `firestore:"lineSubtotal"`
	Variants     []variantDocument `firestore:"variants,omitempty"`
	DesignID     string            `firestore:"designId,omitempty"`
	FabricID     string            `firestore:"fabricId,omitempty"`
}

type variantDocument struct {
	Name          string `firestore:"name"`
	Value         string `firestore:"value"`
	PriceModifier int64  `firestore:"priceModifier"`
}

type invoiceDocument struct {
	InvoiceID  string    `firestore:"invoiceId"`
	InvoiceURL string    `firestore:"invoiceUrl"`
	IssuedAt   time.Time `firestore:"issuedAt"`
}

func encodeOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:    strings.TrimSpace(order.OrderNumber),
		UserEmail:      strings.ToLower(strings.TrimSpace(order.UserEmail)),
		ShippingState:  strings.TrimSpace(order.ShippingState),
		Items:          make([]orderItemDocument, len(order.Items)),
		Subtotal:       order.Subtotal,
		GST:            order.GST,
		Shipping:       order.Shipping,
		CouponCode:     strings.TrimSpace(order.CouponCode),
		CouponDiscount: order.CouponDiscount,
		Total:          order.Total,
		Status:         string(order.Status),
		PaymentStatus:  string(order.PaymentStatus),
		PaymentMethod:  strings.TrimSpace(order.PaymentMethod),
		GatewayOrderID: strings.TrimSpace(order.GatewayOrderID),
		GatewayTxnID:   strings.TrimSpace(order.GatewayTxnID),
		NeedsReview:    order.NeedsReview,
		CancelReason:   strings.TrimSpace(order.CancelReason),
		CreatedAt:      order.CreatedAt.UTC(),
		UpdatedAt:      order.UpdatedAt.UTC(),
		PaidAt:         utcTimePtr(order.PaidAt),
		CancelledAt:    utcTimePtr(order.CancelledAt),
		DeliveredAt:    utcTimePtr(order.DeliveredAt),
		RefundedAt:     utcTimePtr(order.RefundedAt),
	}
	for i, item := range order.Items {
		doc.Items[i] = orderItemDocument{
			ProductType:  string(item.ProductType),
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			SlabDiscount: item.SlabDiscount,
			GSTRate:      item.GSTRate,
			GSTAmount:    item.GSTAmount,
			LineSubtotal: item.LineSubtotal,
			Variants:     encodeVariants(item.Variants),
			DesignID:     item.DesignID,
			FabricID:     item.FabricID,
		}
	}
	if order.Invoice != nil {
		doc.Invoice = &invoiceDocument{
			InvoiceID:  order.Invoice.InvoiceID,
			InvoiceURL: order.Invoice.InvoiceURL,
			IssuedAt:   order.Invoice.IssuedAt.UTC(),
		}
	}
	return doc
}

func (d orderDocument) toDomain(id string) domain.Order {
	order := domain.Order{
		ID:             id,
		OrderNumber:    d.OrderNumber,
		UserEmail:      d.UserEmail,
		ShippingState:  d.ShippingState,
		Items:          make([]domain.OrderItem, len(d.Items)),
		Subtotal:       d.Subtotal,
		GST:            d.GST,
		Shipping:       d.Shipping,
		CouponCode:     d.CouponCode,
		CouponDiscount: d.CouponDiscount,
		Total:          d.Total,
		Status:         domain.OrderStatus(d.Status),
		PaymentStatus:  domain.PaymentStatus(d.PaymentStatus),
		PaymentMethod:  d.PaymentMethod,
		GatewayOrderID: d.GatewayOrderID,
		GatewayTxnID:   d.GatewayTxnID,
		NeedsReview:    d.NeedsReview,
		CancelReason:   d.CancelReason,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		PaidAt:         d.PaidAt,
		CancelledAt:    d.CancelledAt,
		DeliveredAt:    d.DeliveredAt,
		RefundedAt:     d.RefundedAt,
	}
	for i, item := range d.Items {
		order.Items[i] = domain.OrderItem{
			ProductType:  domain.ProductType(item.ProductType),
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			SlabDiscount: item.SlabDiscount,
			GSTRate:      item.GSTRate,
			GSTAmount:    item.GSTAmount,
			LineSubtotal: item.LineSubtotal,
			Variants:     decodeVariants(item.Variants),
			DesignID:     item.DesignID,
			FabricID:     item.FabricID,
		}
	}
	if d.Invoice != nil {
		order.Invoice = &domain.InvoiceInfo{
			InvoiceID:  d.Invoice.InvoiceID,
			InvoiceURL: d.Invoice.InvoiceURL,
			IssuedAt:   d.Invoice.IssuedAt,
		}
	}
	return order
}

func encodeVariants(variants []domain.VariantSelection) []variantDocument {
	if len(variants) == 0 {
		return nil
	}
	out := make([]variantDocument, len(variants))
	for i, v := range variants {
		out[i] = variantDocument{Name: v.Name, Value: v.Value, PriceModifier: v.PriceModifier}
	}
	return out
}

func decodeVariants(variants []variantDocument) []domain.VariantSelection {
	if len(variants) == 0 {
		return nil
	}
	out := make([]domain.VariantSelection, len(variants))
	for i, v := range variants {
		out[i] = domain.VariantSelection{Name: v.Name, Value: v.Value, PriceModifier: v.PriceModifier}
	}
	return out
}

func utcTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
