package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/warungmeja/api/internal/cache"
	"github.com/warungmeja/api/internal/database"
	"github.com/warungmeja/api/internal/middleware"
)

// CatalogStore defines the database methods needed by catalog handlers.
type CatalogStore interface {
	ListCatalogs(ctx context.Context) ([]database.Catalog, error)
	GetCatalog(ctx context.Context, id int64) (database.Catalog, error)
	CreateCatalog(ctx context.Context, arg database.CreateCatalogParams) (database.Catalog, error)
	UpdateCatalog(ctx context.Context, arg database.UpdateCatalogParams) (database.Catalog, error)
	UpdateCatalogSortOrder(ctx context.Context, arg database.UpdateCatalogSortOrderParams) (int64, error)
	SoftDeleteCatalog(ctx context.Context, id int64) (int64, error)
	ListProductsByIDs(ctx context.Context, ids []int64) ([]database.Product, error)
}

// CatalogHandler handles catalog CRUD and ordering endpoints.
type CatalogHandler struct {
	store       CatalogStore
	invalidator Invalidator
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore, invalidator Invalidator) *CatalogHandler {
	return &CatalogHandler{store: store, invalidator: invalidator}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/sort-order", h.UpdateSortOrder)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type catalogRequest struct {
	Name         string              `json:"name"`
	CategoryList []database.Category `json:"categoryList"`
}

type sortOrderRequest struct {
	Catalogs []sortOrderEntry `json:"catalogs"`
}

type sortOrderEntry struct {
	ID        int64 `json:"id"`
	SortOrder int32 `json:"sort_order"`
}

type catalogResponse struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	CategoryList []database.Category `json:"categoryList"`
	SortOrder    int32               `json:"sort_order"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func toCatalogResponse(c database.Catalog) catalogResponse {
	resp := catalogResponse{
		ID:           c.ID,
		Name:         c.Name,
		CategoryList: c.CategoryList,
		SortOrder:    c.SortOrder,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if resp.CategoryList == nil {
		resp.CategoryList = []database.Category{}
	}
	return resp
}

// --- Helpers ---

// validateCategories checks category names and verifies every referenced
// product ID exists and is not deleted. Returns field-keyed error messages.
func (h *CatalogHandler) validateCategories(ctx context.Context, categories []database.Category) (map[string]string, error) {
	fieldErrs := map[string]string{}
	idSet := map[int64]struct{}{}
	for i, cat := range categories {
		if cat.Name == "" {
			fieldErrs[fmt.Sprintf("categoryList[%d]", i)] = "category name is required"
		}
		for _, id := range cat.ProductList {
			idSet[id] = struct{}{}
		}
	}

	if len(idSet) > 0 {
		ids := make([]int64, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		products, err := h.store.ListProductsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		known := make(map[int64]struct{}, len(products))
		for _, p := range products {
			known[p.ID] = struct{}{}
		}
		for i, cat := range categories {
			for j, id := range cat.ProductList {
				if _, ok := known[id]; !ok {
					fieldErrs[fmt.Sprintf("categoryList[%d].productList[%d]", i, j)] = fmt.Sprintf("product %d not found", id)
				}
			}
		}
	}

	return fieldErrs, nil
}

func (h *CatalogHandler) invalidateCatalogCache(r *http.Request, ids ...int64) {
	tags := []string{cache.TagCatalogs, cache.TagCustomerCatalog}
	for _, id := range ids {
		tags = append(tags, cache.CatalogTag(id))
	}
	if err := h.invalidator.Invalidate(r.Context(), tags...); err != nil {
		log.Printf("ERROR: invalidate catalog cache: %v", err)
	}
}

// --- Handlers ---

// List returns all non-deleted catalogs, newest first.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	catalogs, err := h.store.ListCatalogs(r.Context())
	if err != nil {
		log.Printf("ERROR: list catalogs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]catalogResponse, len(catalogs))
	for i, c := range catalogs {
		resp[i] = toCatalogResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single catalog by ID.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid catalog ID"})
		return
	}

	catalog, err := h.store.GetCatalog(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "catalog not found"})
			return
		}
		log.Printf("ERROR: get catalog: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCatalogResponse(catalog))
}

// Create adds a new catalog at the end of the sort order.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req catalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Name) < 3 || len(req.Name) > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name must be between 3 and 100 characters"})
		return
	}

	fieldErrs, err := h.validateCategories(r.Context(), req.CategoryList)
	if err != nil {
		log.Printf("ERROR: validate catalog categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fieldErrs})
		return
	}

	catalog, err := h.store.CreateCatalog(r.Context(), database.CreateCatalogParams{
		Name:         req.Name,
		CategoryList: req.CategoryList,
		AdminID:      claims.AdminID,
	})
	if err != nil {
		log.Printf("ERROR: create catalog: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.invalidateCatalogCache(r)
	writeJSON(w, http.StatusCreated, toCatalogResponse(catalog))
}

// Update replaces a catalog's name and category list wholesale.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid catalog ID"})
		return
	}

	var req catalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Name) < 3 || len(req.Name) > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name must be between 3 and 100 characters"})
		return
	}

	fieldErrs, err := h.validateCategories(r.Context(), req.CategoryList)
	if err != nil {
		log.Printf("ERROR: validate catalog categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fieldErrs})
		return
	}

	catalog, err := h.store.UpdateCatalog(r.Context(), database.UpdateCatalogParams{
		ID:           id,
		Name:         req.Name,
		CategoryList: req.CategoryList,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "catalog not found"})
			return
		}
		log.Printf("ERROR: update catalog: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.invalidateCatalogCache(r, id)
	writeJSON(w, http.StatusOK, toCatalogResponse(catalog))
}

// UpdateSortOrder applies new positions to a batch of catalogs.
// Positions for catalogs missing from the batch are left as they are.
func (h *CatalogHandler) UpdateSortOrder(w http.ResponseWriter, r *http.Request) {
	var req sortOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Catalogs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "catalogs is required"})
		return
	}

	ids := make([]int64, 0, len(req.Catalogs))
	for _, entry := range req.Catalogs {
		_, err := h.store.UpdateCatalogSortOrder(r.Context(), database.UpdateCatalogSortOrderParams{
			ID:        entry.ID,
			SortOrder: entry.SortOrder,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("catalog %d not found", entry.ID)})
				return
			}
			log.Printf("ERROR: update catalog sort order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		ids = append(ids, entry.ID)
	}

	h.invalidateCatalogCache(r, ids...)
	w.WriteHeader(http.StatusNoContent)
}

// Delete soft-deletes a catalog. Its sort position is simply vacated.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid catalog ID"})
		return
	}

	if _, err := h.store.SoftDeleteCatalog(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "catalog not found"})
			return
		}
		log.Printf("ERROR: delete catalog: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.invalidateCatalogCache(r, id)
	w.WriteHeader(http.StatusNoContent)
}
