package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/warungmeja/api/internal/cart"
	"github.com/warungmeja/api/internal/database"
)

// sessionHeader carries the customer's cart session ID. The storefront
// generates a UUID per browser and sends it on every cart request.
const sessionHeader = "X-Session-ID"

// CartProductStore resolves products referenced by cart operations.
type CartProductStore interface {
	GetProduct(ctx context.Context, id int64) (database.Product, error)
	GetTableByNumber(ctx context.Context, tableNumber int32) (database.Table, error)
}

// CartHandler handles the session-scoped cart endpoints.
type CartHandler struct {
	engine *cart.Engine
	store  cart.Store
	db     CartProductStore
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(engine *cart.Engine, store cart.Store, db CartProductStore) *CartHandler {
	return &CartHandler{engine: engine, store: store, db: db}
}

// RegisterRoutes registers public cart endpoints on the given Chi router.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cart", h.Get)
	r.Delete("/cart", h.Clear)
	r.Put("/cart/table", h.SetTable)
	r.Post("/cart/items", h.AddItem)
	r.Put("/cart/items/{id}", h.EditItem)
	r.Patch("/cart/items/{id}/quantity", h.SetQuantity)
	r.Delete("/cart/items/{id}", h.RemoveItem)
}

// --- Request / Response types ---

type addItemRequest struct {
	ProductID  int64   `json:"product_id"`
	Qty        int     `json:"qty"`
	Notes      string  `json:"notes"`
	Selections [][]int `json:"selections"`
}

type editItemRequest struct {
	Qty        int     `json:"qty"`
	Notes      string  `json:"notes"`
	Selections [][]int `json:"selections"`
}

type setQuantityRequest struct {
	Qty int `json:"qty"`
}

type setTableRequest struct {
	TableNumber int32 `json:"table_number"`
}

type cartResponse struct {
	Items  []cart.Item `json:"items"`
	Totals cart.Totals `json:"totals"`
}

// --- Helpers ---

func sessionID(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get(sessionHeader))
	if raw == "" {
		return "", fmt.Errorf("missing %s header", sessionHeader)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s header", sessionHeader)
	}
	return id.String(), nil
}

// applySelections builds an addon snapshot for a product. With no
// selections the product's stored defaults stand; otherwise every
// selection flag is reset and the given item indexes are selected.
func applySelections(groups []database.AddonGroup, selections [][]int) ([]database.AddonGroup, error) {
	out := database.CloneAddonGroups(groups)
	if selections == nil {
		return out, nil
	}
	if len(selections) != len(out) {
		return nil, fmt.Errorf("expected selections for %d addon groups, got %d", len(out), len(selections))
	}
	for gi := range out {
		for ii := range out[gi].Items {
			out[gi].Items[ii].IsSelected = false
		}
		for _, ii := range selections[gi] {
			if ii < 0 || ii >= len(out[gi].Items) {
				return nil, fmt.Errorf("addon group %q has no item %d", out[gi].Name, ii)
			}
			out[gi].Items[ii].IsSelected = true
		}
	}
	if missing := cart.NewSelection(out).MissingRequired(); len(missing) > 0 {
		return nil, fmt.Errorf("addon group %q requires a selection", missing[0])
	}
	return out, nil
}

func parseCartID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, sid string) {
	items, err := h.engine.Items(r.Context(), sid)
	if err != nil {
		log.Printf("ERROR: load cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if items == nil {
		items = []cart.Item{}
	}
	writeJSON(w, http.StatusOK, cartResponse{Items: items, Totals: cart.OrderAggregate(items)})
}

// --- Handlers ---

// Get returns the session's cart items and running totals.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.respondWithCart(w, r, sid)
}

// AddItem appends a new cart line. Adding the same product twice always
// makes a second line; lines are never merged.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	product, err := h.db.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	addons, err := applySelections(product.Addons, req.Selections)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	item, err := h.engine.AddItem(r.Context(), sid, product, addons, req.Qty, req.Notes)
	if err != nil {
		log.Printf("ERROR: add cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// EditItem replaces a line's addon selection, quantity, and notes.
func (h *CartHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cartID, err := parseCartID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cart item ID"})
		return
	}

	var req editItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items, err := h.engine.Items(r.Context(), sid)
	if err != nil {
		log.Printf("ERROR: load cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if cartID < 0 || cartID >= len(items) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
		return
	}

	product, err := h.db.GetProduct(r.Context(), items[cartID].ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	addons, err := applySelections(product.Addons, req.Selections)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	item, err := h.engine.EditItem(r.Context(), sid, cartID, addons, req.Qty, req.Notes)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
			return
		}
		log.Printf("ERROR: edit cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// SetQuantity changes a line's quantity. Out-of-range values keep the
// current quantity, mirroring a stepper that stops at its bounds.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cartID, err := parseCartID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cart item ID"})
		return
	}

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.engine.SetQuantity(r.Context(), sid, cartID, req.Qty)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
			return
		}
		log.Printf("ERROR: set cart quantity: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// RemoveItem deletes a line and closes the positional gap.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cartID, err := parseCartID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cart item ID"})
		return
	}

	if err := h.engine.RemoveItem(r.Context(), sid, cartID); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
			return
		}
		log.Printf("ERROR: remove cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.respondWithCart(w, r, sid)
}

// Clear empties the session's cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.engine.Clear(r.Context(), sid); err != nil {
		log.Printf("ERROR: clear cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetTable binds the session to a dining table by its printed number.
func (h *CartHandler) SetTable(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req setTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	table, err := h.db.GetTableByNumber(r.Context(), req.TableNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table by number: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	tc := cart.TableContext{ID: table.ID, TableNumber: table.TableNumber}
	if err := h.store.SaveTableContext(r.Context(), sid, tc); err != nil {
		log.Printf("ERROR: save table context: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, tc)
}
