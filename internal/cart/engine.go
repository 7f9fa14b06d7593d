// Package cart owns the customer's order-in-progress: addon selection
// for a single item, the priced item collection, and the whole-order
// aggregate. The mutations are pure functions over the item slice;
// Engine wraps them with Store persistence so storage stays a
// boundary concern.
package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/warungmeja/api/internal/database"
)

// Quantity bounds for one cart line. Requests outside the range are
// silently rejected, keeping the boundary value.
const (
	MinQuantity = 1
	MaxQuantity = 15
)

// Order-level rates. Tax applies to the service-inclusive amount.
var (
	ServiceRate = decimal.NewFromFloat(0.05)
	TaxRate     = decimal.NewFromFloat(0.10)
)

// ErrItemNotFound is returned for a cartID with no matching line.
var ErrItemNotFound = errors.New("cart item not found")

// Item is one line of the cart. CartID always equals the line's
// position in the collection and is re-derived after every mutation;
// it is a display convenience, not a stable identifier. Price is the
// base product price snapshot, UnitPrice adds the selected addons, and
// TotalPrice is always recomputed as UnitPrice * Qty, never scaled
// from a previous total.
type Item struct {
	ID          int64                 `json:"id"`
	CartID      int                   `json:"cartId"`
	Name        string                `json:"name"`
	Image       *string               `json:"image"`
	Thumbnail   *string               `json:"thumbnail"`
	Description string                `json:"description"`
	Notes       string                `json:"notes"`
	Price       int64                 `json:"price"`
	UnitPrice   int64                 `json:"unitPrice"`
	Qty         int                   `json:"qty"`
	TotalPrice  int64                 `json:"totalPrice"`
	Addons      []database.AddonGroup `json:"addons"`
}

// TableContext is the customer's last-visited table.
type TableContext struct {
	ID          int64 `json:"id"`
	TableNumber int32 `json:"tableNumber"`
}

// Store persists the cart collection and table context for one
// browsing session. Failures propagate to the caller; the engine does
// not retry.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]Item, error)
	Save(ctx context.Context, sessionID string, items []Item) error
	LoadTableContext(ctx context.Context, sessionID string) (TableContext, error)
	SaveTableContext(ctx context.Context, sessionID string, tc TableContext) error
}

// ComputeUnitPrice returns base plus the sum of selected addon prices.
func ComputeUnitPrice(base int64, addons []database.AddonGroup) int64 {
	unit := base
	for _, g := range addons {
		for _, item := range g.Items {
			if item.IsSelected {
				unit += item.Price
			}
		}
	}
	return unit
}

// Totals is the computed whole-order summary.
type Totals struct {
	QuantityTotal int   `json:"quantityTotal"`
	Subtotal      int64 `json:"subtotal"`
	ServiceAmount int64 `json:"serviceAmount"`
	TaxAmount     int64 `json:"taxAmount"`
	GrandTotal    int64 `json:"grandTotal"`
}

// OrderAggregate derives the order summary from the item collection.
// Service is charged on the subtotal, tax on the service-inclusive
// amount. Each derived amount is rounded half-up exactly once; the
// grand total is the sum of the rounded parts so the printed lines
// always add up.
func OrderAggregate(items []Item) Totals {
	var t Totals
	for _, item := range items {
		t.QuantityTotal += item.Qty
		t.Subtotal += item.TotalPrice
	}

	subtotal := decimal.NewFromInt(t.Subtotal)
	service := subtotal.Mul(ServiceRate).Round(0)
	tax := subtotal.Add(service).Mul(TaxRate).Round(0)

	t.ServiceAmount = service.IntPart()
	t.TaxAmount = tax.IntPart()
	t.GrandTotal = t.Subtotal + t.ServiceAmount + t.TaxAmount
	return t
}

// --- Pure collection mutations ---

func reindex(items []Item) {
	for i := range items {
		items[i].CartID = i
	}
}

func clampQuantity(qty int) int {
	if qty < MinQuantity {
		return MinQuantity
	}
	if qty > MaxQuantity {
		return MaxQuantity
	}
	return qty
}

func addItem(items []Item, item Item) []Item {
	item.Qty = clampQuantity(item.Qty)
	item.UnitPrice = ComputeUnitPrice(item.Price, item.Addons)
	item.TotalPrice = item.UnitPrice * int64(item.Qty)
	items = append(items, item)
	reindex(items)
	return items
}

// setQuantity leaves the collection unchanged for out-of-range
// requests: the boundary quantity is retained and the request is
// silently dropped.
func setQuantity(items []Item, cartID, qty int) []Item {
	if qty < MinQuantity || qty > MaxQuantity {
		return items
	}
	items[cartID].Qty = qty
	items[cartID].TotalPrice = items[cartID].UnitPrice * int64(qty)
	return items
}

// editItem replaces the line's addon selection, quantity, and notes,
// recomputing the prices from scratch rather than tracking deltas
// across the edit.
func editItem(items []Item, cartID int, addons []database.AddonGroup, qty int, notes string) []Item {
	item := &items[cartID]
	item.Addons = database.CloneAddonGroups(addons)
	item.Notes = notes
	item.Qty = clampQuantity(qty)
	item.UnitPrice = ComputeUnitPrice(item.Price, item.Addons)
	item.TotalPrice = item.UnitPrice * int64(item.Qty)
	return items
}

func removeItem(items []Item, cartID int) []Item {
	items = append(items[:cartID], items[cartID+1:]...)
	reindex(items)
	return items
}

// --- Store-backed engine ---

// Engine applies cart mutations against a session's persisted
// collection. One browsing session owns exactly one cart, so there is
// no concurrent-writer arbitration; every mutation is a load, a pure
// transform, and an atomic save.
type Engine struct {
	store Store
}

// NewEngine creates an Engine backed by the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Items returns the current collection with positional CartIDs.
func (e *Engine) Items(ctx context.Context, sessionID string) ([]Item, error) {
	items, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	reindex(items)
	return items, nil
}

// AddItem prices the product with the given addon snapshot and appends
// it as a new line. Re-adding a product already in the cart always
// creates a new line; distinct addon selections are never merged.
func (e *Engine) AddItem(ctx context.Context, sessionID string, p database.Product, addons []database.AddonGroup, qty int, notes string) (Item, error) {
	items, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return Item{}, err
	}

	item := Item{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Notes:       notes,
		Price:       p.Price,
		Qty:         qty,
		Addons:      database.CloneAddonGroups(addons),
	}
	if p.Image.Valid {
		img := p.Image.String
		item.Image = &img
	}
	if p.Thumbnail.Valid {
		th := p.Thumbnail.String
		item.Thumbnail = &th
	}

	items = addItem(items, item)
	if err := e.store.Save(ctx, sessionID, items); err != nil {
		return Item{}, err
	}
	return items[len(items)-1], nil
}

// SetQuantity changes a line's quantity within 1..15. Out-of-range
// requests return the unchanged line. The line total is recomputed as
// UnitPrice * qty, so repeated increment/decrement cycles cannot
// drift.
func (e *Engine) SetQuantity(ctx context.Context, sessionID string, cartID, qty int) (Item, error) {
	items, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return Item{}, err
	}
	if cartID < 0 || cartID >= len(items) {
		return Item{}, ErrItemNotFound
	}

	reindex(items)
	items = setQuantity(items, cartID, qty)
	if err := e.store.Save(ctx, sessionID, items); err != nil {
		return Item{}, err
	}
	return items[cartID], nil
}

// EditItem replaces a line's addon selection, quantity, and notes,
// recomputing unit price and line total from scratch.
func (e *Engine) EditItem(ctx context.Context, sessionID string, cartID int, addons []database.AddonGroup, qty int, notes string) (Item, error) {
	items, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return Item{}, err
	}
	if cartID < 0 || cartID >= len(items) {
		return Item{}, ErrItemNotFound
	}

	reindex(items)
	items = editItem(items, cartID, addons, qty, notes)
	if err := e.store.Save(ctx, sessionID, items); err != nil {
		return Item{}, err
	}
	return items[cartID], nil
}

// EditAddons replaces only the addon selection, keeping quantity and
// notes.
func (e *Engine) EditAddons(ctx context.Context, sessionID string, cartID int, addons []database.AddonGroup) (Item, error) {
	items, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return Item{}, err
	}
	if cartID < 0 || cartID >= len(items) {
		return Item{}, ErrItemNotFound
	}

	reindex(items)
	items = editItem(items, cartID, addons, items[cartID].Qty, items[cartID].Notes)
	if err := e.store.Save(ctx, sessionID, items); err != nil {
		return Item{}, err
	}
	return items[cartID], nil
}

// RemoveItem drops the line and reindexes the remaining lines to their
// new positions.
func (e *Engine) RemoveItem(ctx context.Context, sessionID string, cartID int) error {
	items, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if cartID < 0 || cartID >= len(items) {
		return ErrItemNotFound
	}

	items = removeItem(items, cartID)
	return e.store.Save(ctx, sessionID, items)
}

// Clear empties the cart.
func (e *Engine) Clear(ctx context.Context, sessionID string) error {
	return e.store.Save(ctx, sessionID, []Item{})
}

// Summary re-derives the order aggregate from the persisted
// collection.
func (e *Engine) Summary(ctx context.Context, sessionID string) (Totals, error) {
	items, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return Totals{}, err
	}
	return OrderAggregate(items), nil
}
