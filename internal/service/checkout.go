package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/warungmeja/api/internal/cart"
	"github.com/warungmeja/api/internal/database"
	"github.com/warungmeja/api/internal/enum"
)

// Errors returned by the checkout service.
var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrCustomerName    = errors.New("customer name must be 3-100 characters")
	ErrPhoneNumber     = errors.New("phone number must be 6-15 characters")
	ErrTableNotFound   = errors.New("table not found")
	ErrProductNotFound = errors.New("product no longer available")
	ErrMissingRequired = errors.New("required addon group has no selection")
	ErrInvalidQuantity = errors.New("quantity out of range")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CheckoutStore defines the DB methods needed to commit an order.
// Satisfied by *database.Queries (and its WithTx variant).
type CheckoutStore interface {
	GetProduct(ctx context.Context, id int64) (database.Product, error)
	GetTable(ctx context.Context, id int64) (database.Table, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
}

// NewCheckoutStore creates a CheckoutStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewCheckoutStore func(db database.DBTX) CheckoutStore

// CheckoutRequest is the validated input for committing an order.
type CheckoutRequest struct {
	CustomerName  string
	PhoneNumber   string
	PaymentMethod string
	PaymentLink   string
	TableID       int64
	Items         []cart.Item
}

// CheckoutResult is the committed order with its server-side totals.
type CheckoutResult struct {
	Order  database.Order
	Items  []cart.Item
	Totals cart.Totals
}

// CheckoutService turns a session cart into a committed order.
type CheckoutService struct {
	pool     TxBeginner
	newStore NewCheckoutStore
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(pool TxBeginner, newStore NewCheckoutStore) *CheckoutService {
	return &CheckoutService{pool: pool, newStore: newStore}
}

// Checkout revalidates every cart line against the product store
// (write-side strictness: a vanished product rejects the checkout
// instead of being silently dropped), reprices each line from the
// stored base price plus the snapshot's selected addons, and commits
// the order atomically with status "unpaid".
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if n := len(req.CustomerName); n < 3 || n > 100 {
		return nil, ErrCustomerName
	}
	if n := len(req.PhoneNumber); n < 6 || n > 15 {
		return nil, ErrPhoneNumber
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	table, err := store.GetTable(ctx, req.TableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	// Reprice each line from the committed product record. The addon
	// snapshot keeps the customer's selections; the base price always
	// comes from the store so a stale client cannot fix its own price.
	items := make([]cart.Item, len(req.Items))
	for i, item := range req.Items {
		if item.Qty < cart.MinQuantity || item.Qty > cart.MaxQuantity {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		product, err := store.GetProduct(ctx, item.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}

		if missing := cart.NewSelection(item.Addons).MissingRequired(); len(missing) > 0 {
			return nil, fmt.Errorf("item[%d] %q: %w", i, missing[0], ErrMissingRequired)
		}

		item.Price = product.Price
		item.UnitPrice = cart.ComputeUnitPrice(product.Price, item.Addons)
		item.TotalPrice = item.UnitPrice * int64(item.Qty)
		item.CartID = i
		items[i] = item
	}

	totals := cart.OrderAggregate(items)

	snapshot, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode cart snapshot: %w", err)
	}

	paymentMethod := pgtype.Text{}
	if req.PaymentMethod != "" {
		paymentMethod = pgtype.Text{String: req.PaymentMethod, Valid: true}
	}
	paymentLink := pgtype.Text{}
	if req.PaymentLink != "" {
		paymentLink = pgtype.Text{String: req.PaymentLink, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CustomerName:  req.CustomerName,
		PhoneNumber:   req.PhoneNumber,
		CartItems:     snapshot,
		Status:        enum.OrderStatusUnpaid,
		PaymentMethod: paymentMethod,
		PaymentLink:   paymentLink,
		TableID:       table.ID,
		TableNumber:   table.TableNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CheckoutResult{Order: order, Items: items, Totals: totals}, nil
}
