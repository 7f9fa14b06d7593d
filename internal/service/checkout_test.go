package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/warungmeja/api/internal/cart"
	"github.com/warungmeja/api/internal/database"
	"github.com/warungmeja/api/internal/enum"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockCheckoutStore implements CheckoutStore with configurable behavior.
type mockCheckoutStore struct {
	getProductFn  func(ctx context.Context, id int64) (database.Product, error)
	getTableFn    func(ctx context.Context, id int64) (database.Table, error)
	createOrderFn func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
}

func (m *mockCheckoutStore) GetProduct(ctx context.Context, id int64) (database.Product, error) {
	return m.getProductFn(ctx, id)
}
func (m *mockCheckoutStore) GetTable(ctx context.Context, id int64) (database.Table, error) {
	return m.getTableFn(ctx, id)
}
func (m *mockCheckoutStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}

// --- Test helpers ---

// newTestService creates a CheckoutService with mocked dependencies.
func newTestService(store *mockCheckoutStore) (*CheckoutService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) CheckoutStore { return store }
	return NewCheckoutService(pool, newStore), tx
}

// defaultStore returns a mockCheckoutStore with one known product and table.
// Individual tests override the functions they care about.
func defaultStore(productID, tableID int64) *mockCheckoutStore {
	return &mockCheckoutStore{
		getProductFn: func(ctx context.Context, id int64) (database.Product, error) {
			if id == productID {
				return database.Product{ID: productID, Name: "Nasi Goreng", Price: 25000}, nil
			}
			return database.Product{}, pgx.ErrNoRows
		},
		getTableFn: func(ctx context.Context, id int64) (database.Table, error) {
			if id == tableID {
				return database.Table{ID: tableID, TableNumber: 7}, nil
			}
			return database.Table{}, pgx.ErrNoRows
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:            1,
				CustomerName:  arg.CustomerName,
				PhoneNumber:   arg.PhoneNumber,
				CartItems:     arg.CartItems,
				Status:        arg.Status,
				PaymentMethod: arg.PaymentMethod,
				PaymentLink:   arg.PaymentLink,
				TableID:       arg.TableID,
				TableNumber:   arg.TableNumber,
			}, nil
		},
	}
}

func basicReq(productID, tableID int64) CheckoutRequest {
	return CheckoutRequest{
		CustomerName: "Budi Santoso",
		PhoneNumber:  "08123456789",
		TableID:      tableID,
		Items: []cart.Item{
			{ID: productID, Name: "Nasi Goreng", Price: 25000, UnitPrice: 25000, Qty: 2, TotalPrice: 50000},
		},
	}
}

// =====================
// Validation tests
// =====================

func TestCheckout_EmptyCart(t *testing.T) {
	svc, _ := newTestService(defaultStore(1, 1))

	req := basicReq(1, 1)
	req.Items = nil
	_, err := svc.Checkout(context.Background(), req)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got: %v", err)
	}
}

func TestCheckout_CustomerNameTooShort(t *testing.T) {
	svc, _ := newTestService(defaultStore(1, 1))

	req := basicReq(1, 1)
	req.CustomerName = "Bu"
	_, err := svc.Checkout(context.Background(), req)
	if !errors.Is(err, ErrCustomerName) {
		t.Fatalf("expected ErrCustomerName, got: %v", err)
	}
}

func TestCheckout_PhoneNumberTooShort(t *testing.T) {
	svc, _ := newTestService(defaultStore(1, 1))

	req := basicReq(1, 1)
	req.PhoneNumber = "08123"
	_, err := svc.Checkout(context.Background(), req)
	if !errors.Is(err, ErrPhoneNumber) {
		t.Fatalf("expected ErrPhoneNumber, got: %v", err)
	}
}

func TestCheckout_TableNotFound(t *testing.T) {
	svc, _ := newTestService(defaultStore(1, 1))

	req := basicReq(1, 999)
	_, err := svc.Checkout(context.Background(), req)
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got: %v", err)
	}
}

func TestCheckout_ProductNotFound(t *testing.T) {
	svc, _ := newTestService(defaultStore(1, 1))

	req := basicReq(999, 1)
	_, err := svc.Checkout(context.Background(), req)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got: %v", err)
	}
}

func TestCheckout_QuantityOutOfRange(t *testing.T) {
	svc, _ := newTestService(defaultStore(1, 1))

	req := basicReq(1, 1)
	req.Items[0].Qty = 16
	_, err := svc.Checkout(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestCheckout_MissingRequiredAddonGroup(t *testing.T) {
	svc, _ := newTestService(defaultStore(1, 1))

	req := basicReq(1, 1)
	req.Items[0].Addons = []database.AddonGroup{
		{Name: "Size", Type: enum.AddonTypeOne, Items: []database.AddonItem{
			{Name: "Regular", Price: 0},
			{Name: "Large", Price: 5000},
		}},
	}
	_, err := svc.Checkout(context.Background(), req)
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired, got: %v", err)
	}
}

// =====================
// Repricing tests
// =====================

func TestCheckout_RepricesFromStoredBasePrice(t *testing.T) {
	store := defaultStore(1, 1)
	var captured database.CreateOrderParams
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return database.Order{ID: 1, Status: arg.Status, CartItems: arg.CartItems, TableID: arg.TableID, TableNumber: arg.TableNumber}, nil
	}
	svc, tx := newTestService(store)

	// Client claims the product costs 1, the store says 25000.
	req := basicReq(1, 1)
	req.Items[0].Price = 1
	req.Items[0].UnitPrice = 1
	req.Items[0].TotalPrice = 2

	res, err := svc.Checkout(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("transaction should be committed")
	}

	if res.Items[0].UnitPrice != 25000 {
		t.Errorf("unit price: got %d, want 25000", res.Items[0].UnitPrice)
	}
	if res.Items[0].TotalPrice != 50000 {
		t.Errorf("total price: got %d, want 50000", res.Items[0].TotalPrice)
	}
	if res.Totals.Subtotal != 50000 {
		t.Errorf("subtotal: got %d, want 50000", res.Totals.Subtotal)
	}
	// service = 5% of 50000 = 2500; tax = 10% of 52500 = 5250
	if res.Totals.ServiceAmount != 2500 {
		t.Errorf("service: got %d, want 2500", res.Totals.ServiceAmount)
	}
	if res.Totals.TaxAmount != 5250 {
		t.Errorf("tax: got %d, want 5250", res.Totals.TaxAmount)
	}
	if res.Totals.GrandTotal != 57750 {
		t.Errorf("grand total: got %d, want 57750", res.Totals.GrandTotal)
	}

	var snapshot []cart.Item
	if err := json.Unmarshal(captured.CartItems, &snapshot); err != nil {
		t.Fatalf("cart snapshot is not valid json: %v", err)
	}
	if snapshot[0].UnitPrice != 25000 {
		t.Errorf("snapshot unit price: got %d, want 25000", snapshot[0].UnitPrice)
	}
}

func TestCheckout_AddonPricesComeFromSnapshot(t *testing.T) {
	store := defaultStore(1, 1)
	svc, _ := newTestService(store)

	req := basicReq(1, 1)
	req.Items[0].Addons = []database.AddonGroup{
		{Name: "Size", Type: enum.AddonTypeOne, Items: []database.AddonItem{
			{Name: "Regular", Price: 0},
			{Name: "Large", Price: 5000, IsSelected: true},
		}},
		{Name: "Topping", Type: enum.AddonTypeMultiple, Items: []database.AddonItem{
			{Name: "Cheese", Price: 3000, IsSelected: true},
			{Name: "Egg", Price: 4000},
		}},
	}

	res, err := svc.Checkout(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 25000 base + 5000 + 3000 = 33000 per unit, qty 2
	if res.Items[0].UnitPrice != 33000 {
		t.Errorf("unit price: got %d, want 33000", res.Items[0].UnitPrice)
	}
	if res.Items[0].TotalPrice != 66000 {
		t.Errorf("total price: got %d, want 66000", res.Items[0].TotalPrice)
	}
}

func TestCheckout_ReindexesCartIDs(t *testing.T) {
	store := defaultStore(1, 1)
	svc, _ := newTestService(store)

	req := basicReq(1, 1)
	req.Items = []cart.Item{
		{ID: 1, CartID: 4, Name: "Nasi Goreng", Qty: 1},
		{ID: 1, CartID: 9, Name: "Nasi Goreng", Qty: 2},
	}

	res, err := svc.Checkout(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, item := range res.Items {
		if item.CartID != i {
			t.Errorf("item[%d] cart id: got %d, want %d", i, item.CartID, i)
		}
	}
}

// =====================
// Commit tests
// =====================

func TestCheckout_CreatesUnpaidOrderWithTableSnapshot(t *testing.T) {
	store := defaultStore(1, 5)
	store.getTableFn = func(ctx context.Context, id int64) (database.Table, error) {
		if id == 5 {
			return database.Table{ID: 5, TableNumber: 12}, nil
		}
		return database.Table{}, pgx.ErrNoRows
	}

	var captured database.CreateOrderParams
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return database.Order{ID: 7, Status: arg.Status, TableID: arg.TableID, TableNumber: arg.TableNumber}, nil
	}

	svc, _ := newTestService(store)
	req := basicReq(1, 5)
	req.PaymentMethod = enum.PaymentMethodQRIS

	res, err := svc.Checkout(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Status != enum.OrderStatusUnpaid {
		t.Errorf("status: got %q, want %q", captured.Status, enum.OrderStatusUnpaid)
	}
	if captured.TableID != 5 || captured.TableNumber != 12 {
		t.Errorf("table snapshot: got id=%d number=%d, want id=5 number=12", captured.TableID, captured.TableNumber)
	}
	if !captured.PaymentMethod.Valid || captured.PaymentMethod.String != enum.PaymentMethodQRIS {
		t.Errorf("payment method: got %v", captured.PaymentMethod)
	}
	if res.Order.ID != 7 {
		t.Errorf("order id: got %d, want 7", res.Order.ID)
	}
}

func TestCheckout_CreateOrderFailureRollsBack(t *testing.T) {
	store := defaultStore(1, 1)
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, errors.New("insert failed")
	}

	svc, tx := newTestService(store)
	_, err := svc.Checkout(context.Background(), basicReq(1, 1))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if tx.committed {
		t.Error("transaction must not be committed on failure")
	}
}

func TestCheckout_BeginFailure(t *testing.T) {
	store := defaultStore(1, 1)
	pool := &mockTxBeginner{err: errors.New("pool exhausted")}
	newStore := func(db database.DBTX) CheckoutStore { return store }
	svc := NewCheckoutService(pool, newStore)

	_, err := svc.Checkout(context.Background(), basicReq(1, 1))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
