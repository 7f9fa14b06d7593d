package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/warungmeja/api/internal/cart"
	"github.com/warungmeja/api/internal/database"
	"github.com/warungmeja/api/internal/enum"
	"github.com/warungmeja/api/internal/handler"
)

// --- In-memory session store ---

type memSessionStore struct {
	carts  map[string][]cart.Item
	tables map[string]cart.TableContext
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		carts:  make(map[string][]cart.Item),
		tables: make(map[string]cart.TableContext),
	}
}

func (s *memSessionStore) Load(_ context.Context, sessionID string) ([]cart.Item, error) {
	return append([]cart.Item(nil), s.carts[sessionID]...), nil
}

func (s *memSessionStore) Save(_ context.Context, sessionID string, items []cart.Item) error {
	s.carts[sessionID] = append([]cart.Item(nil), items...)
	return nil
}

func (s *memSessionStore) LoadTableContext(_ context.Context, sessionID string) (cart.TableContext, error) {
	return s.tables[sessionID], nil
}

func (s *memSessionStore) SaveTableContext(_ context.Context, sessionID string, tc cart.TableContext) error {
	s.tables[sessionID] = tc
	return nil
}

// --- Mock product lookup ---

type mockCartDB struct {
	products map[int64]database.Product
	tables   map[int32]database.Table
}

func newMockCartDB() *mockCartDB {
	return &mockCartDB{
		products: make(map[int64]database.Product),
		tables:   make(map[int32]database.Table),
	}
}

func (m *mockCartDB) GetProduct(_ context.Context, id int64) (database.Product, error) {
	p, ok := m.products[id]
	if !ok || p.IsDeleted {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockCartDB) GetTableByNumber(_ context.Context, tableNumber int32) (database.Table, error) {
	t, ok := m.tables[tableNumber]
	if !ok {
		return database.Table{}, pgx.ErrNoRows
	}
	return t, nil
}

// --- Helpers ---

func seedCartDB(db *mockCartDB) {
	db.products[1] = database.Product{
		ID: 1, Name: "Kopi Susu", Price: 20000,
		Addons: []database.AddonGroup{
			{Name: "Temperature", Type: enum.AddonTypeOne, Items: []database.AddonItem{
				{Name: "Iced", Price: 0, IsSelected: true},
				{Name: "Hot", Price: 2000},
			}},
			{Name: "Extras", Type: enum.AddonTypeMultiple, Items: []database.AddonItem{
				{Name: "Extra Shot", Price: 6000},
			}},
		},
	}
	db.tables[7] = database.Table{ID: 3, TableNumber: 7}
}

func setupCartRouter(db *mockCartDB) (*chi.Mux, *memSessionStore) {
	store := newMemSessionStore()
	engine := cart.NewEngine(store)
	h := handler.NewCartHandler(engine, store, db)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, store
}

func doCartRequest(t *testing.T, router http.Handler, method, path, session string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

const cartSession = "3f1a7a2e-9a54-4a91-b7a8-2f6d1c5e0b44"

// --- Tests ---

func TestCart_MissingSessionHeader(t *testing.T) {
	router, _ := setupCartRouter(newMockCartDB())

	rr := doCartRequest(t, router, "GET", "/cart", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCart_NonUUIDSession(t *testing.T) {
	router, _ := setupCartRouter(newMockCartDB())

	rr := doCartRequest(t, router, "GET", "/cart", "session-1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCartAdd_DefaultSelections(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	rr := doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{
		"product_id": 1,
		"qty":        2,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["cartId"] != float64(0) {
		t.Errorf("cartId: got %v, want 0", resp["cartId"])
	}
	// Iced is the stored default, price 0, so unit price is the base.
	if resp["unitPrice"] != float64(20000) {
		t.Errorf("unitPrice: got %v, want 20000", resp["unitPrice"])
	}
	if resp["totalPrice"] != float64(40000) {
		t.Errorf("totalPrice: got %v, want 40000", resp["totalPrice"])
	}
}

func TestCartAdd_ExplicitSelections(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	rr := doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{
		"product_id": 1,
		"qty":        1,
		"selections": [][]int{{1}, {0}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	// Hot (2000) + Extra Shot (6000) on a 20000 base.
	if resp := decodeResponse(t, rr); resp["unitPrice"] != float64(28000) {
		t.Errorf("unitPrice: got %v, want 28000", resp["unitPrice"])
	}
}

func TestCartAdd_RejectsEmptyRequiredGroup(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	rr := doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{
		"product_id": 1,
		"qty":        1,
		"selections": [][]int{{}, {}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
}

func TestCartAdd_RejectsOutOfRangeSelection(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	rr := doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{
		"product_id": 1,
		"qty":        1,
		"selections": [][]int{{5}, {}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
}

func TestCartAdd_UnknownProduct(t *testing.T) {
	router, _ := setupCartRouter(newMockCartDB())

	rr := doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{
		"product_id": 42,
		"qty":        1,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
}

func TestCartAdd_SameProductMakesNewLine(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{"product_id": 1, "qty": 1})
	doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{"product_id": 1, "qty": 1})

	rr := doCartRequest(t, router, "GET", "/cart", cartSession, nil)
	resp := decodeResponse(t, rr)
	items := resp["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2 separate lines", len(items))
	}
}

func TestCartSetQuantity_RecomputesTotal(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{"product_id": 1, "qty": 1})

	rr := doCartRequest(t, router, "PATCH", "/cart/items/0/quantity", cartSession, map[string]int{"qty": 5})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["qty"] != float64(5) {
		t.Errorf("qty: got %v, want 5", resp["qty"])
	}
	if resp["totalPrice"] != float64(100000) {
		t.Errorf("totalPrice: got %v, want 100000", resp["totalPrice"])
	}
}

func TestCartSetQuantity_UnknownLine(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	rr := doCartRequest(t, router, "PATCH", "/cart/items/3/quantity", cartSession, map[string]int{"qty": 2})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
}

func TestCartRemove_ReindexesRemainingLines(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	for i := 0; i < 3; i++ {
		doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{"product_id": 1, "qty": i + 1})
	}

	rr := doCartRequest(t, router, "DELETE", "/cart/items/1", cartSession, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	items := resp["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
	for i, raw := range items {
		item := raw.(map[string]interface{})
		if item["cartId"] != float64(i) {
			t.Errorf("item %d cartId: got %v, want %d", i, item["cartId"], i)
		}
	}
	// The former third line (qty 3) moved into position 1.
	if items[1].(map[string]interface{})["qty"] != float64(3) {
		t.Errorf("reindexed line qty: got %v, want 3", items[1].(map[string]interface{})["qty"])
	}
}

func TestCartEdit_ReplacesSelection(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{"product_id": 1, "qty": 2})

	rr := doCartRequest(t, router, "PUT", "/cart/items/0", cartSession, map[string]interface{}{
		"qty":        3,
		"notes":      "less sugar",
		"selections": [][]int{{1}, {0}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["unitPrice"] != float64(28000) {
		t.Errorf("unitPrice: got %v, want 28000", resp["unitPrice"])
	}
	if resp["qty"] != float64(3) || resp["notes"] != "less sugar" {
		t.Errorf("qty/notes: got %v/%v", resp["qty"], resp["notes"])
	}
}

func TestCartTotals_TaxOnServiceInclusiveAmount(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{"product_id": 1, "qty": 1})

	rr := doCartRequest(t, router, "GET", "/cart", cartSession, nil)
	resp := decodeResponse(t, rr)
	totals := resp["totals"].(map[string]interface{})
	// 20000 subtotal, 5% service = 1000, 10% tax on 21000 = 2100.
	if totals["serviceAmount"] != float64(1000) {
		t.Errorf("service: got %v, want 1000", totals["serviceAmount"])
	}
	if totals["taxAmount"] != float64(2100) {
		t.Errorf("tax: got %v, want 2100", totals["taxAmount"])
	}
	if totals["grandTotal"] != float64(23100) {
		t.Errorf("grand total: got %v, want 23100", totals["grandTotal"])
	}
}

func TestCartSetTable_BindsSession(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, store := setupCartRouter(db)

	rr := doCartRequest(t, router, "PUT", "/cart/table", cartSession, map[string]int{"table_number": 7})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	sid, _ := uuid.Parse(cartSession)
	tc := store.tables[sid.String()]
	if tc.ID != 3 || tc.TableNumber != 7 {
		t.Errorf("table context: got %+v", tc)
	}
}

func TestCartSetTable_UnknownTable(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	rr := doCartRequest(t, router, "PUT", "/cart/table", cartSession, map[string]int{"table_number": 99})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
}

func TestCartClear(t *testing.T) {
	db := newMockCartDB()
	seedCartDB(db)
	router, _ := setupCartRouter(db)

	doCartRequest(t, router, "POST", "/cart/items", cartSession, map[string]interface{}{"product_id": 1, "qty": 1})

	rr := doCartRequest(t, router, "DELETE", "/cart", cartSession, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	get := doCartRequest(t, router, "GET", "/cart", cartSession, nil)
	resp := decodeResponse(t, get)
	if items := resp["items"].([]interface{}); len(items) != 0 {
		t.Errorf("cart not empty after clear: %v", items)
	}
}
