package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/warungmeja/api/internal/cache"
	"github.com/warungmeja/api/internal/catalog"
	"github.com/warungmeja/api/internal/database"
)

const menuCacheKey = "customer_catalog"

// MenuStore defines the database methods needed by the customer menu.
type MenuStore interface {
	ListCatalogsBySortOrder(ctx context.Context) ([]database.Catalog, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
	GetTableByNumber(ctx context.Context, tableNumber int32) (database.Table, error)
}

// MenuCache is the read-through cache for the aggregated menu.
// Satisfied by *cache.TagCache.
type MenuCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, tags ...string) error
}

// MenuHandler serves the aggregated customer-facing menu.
type MenuHandler struct {
	store MenuStore
	cache MenuCache
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, menuCache MenuCache) *MenuHandler {
	return &MenuHandler{store: store, cache: menuCache}
}

// RegisterRoutes registers the public menu endpoint.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.Get)
}

type menuResponse struct {
	Table    tableResponse            `json:"table"`
	Catalogs []catalog.DisplayCatalog `json:"catalogs"`
}

// Get returns the full menu for the table named by ?table=N.
// The aggregated catalog view is cached; any product or catalog write
// invalidates it, so a miss rebuilds from the current records.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	tableNumber, err := strconv.ParseInt(r.URL.Query().Get("table"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table number"})
		return
	}

	table, err := h.store.GetTableByNumber(r.Context(), int32(tableNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table by number: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var catalogs []catalog.DisplayCatalog
	hit, err := h.cache.Get(r.Context(), menuCacheKey, &catalogs)
	if err != nil {
		log.Printf("ERROR: menu cache get: %v", err)
	}
	if !hit {
		catalogs, err = h.aggregate(r.Context())
		if err != nil {
			log.Printf("ERROR: aggregate menu: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if err := h.cache.Set(r.Context(), menuCacheKey, catalogs,
			cache.TagProducts, cache.TagCatalogs, cache.TagCustomerCatalog); err != nil {
			log.Printf("ERROR: menu cache set: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, menuResponse{
		Table:    toTableResponse(table),
		Catalogs: catalogs,
	})
}

func (h *MenuHandler) aggregate(ctx context.Context) ([]catalog.DisplayCatalog, error) {
	catalogs, err := h.store.ListCatalogsBySortOrder(ctx)
	if err != nil {
		return nil, err
	}
	products, err := h.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Aggregate(catalogs, products), nil
}
