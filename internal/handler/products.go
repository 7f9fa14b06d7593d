package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/warungmeja/api/internal/cache"
	"github.com/warungmeja/api/internal/database"
	"github.com/warungmeja/api/internal/enum"
	"github.com/warungmeja/api/internal/middleware"
)

// Invalidator drops cached entries for the given tags after a write.
// Satisfied by *cache.TagCache.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
	SearchProducts(ctx context.Context, query string) ([]database.Product, error)
	GetProduct(ctx context.Context, id int64) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	SoftDeleteProduct(ctx context.Context, id int64) (int64, error)
}

// ProductHandler handles product CRUD endpoints.
type ProductHandler struct {
	store       ProductStore
	invalidator Invalidator
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore, invalidator Invalidator) *ProductHandler {
	return &ProductHandler{store: store, invalidator: invalidator}
}

// RegisterRoutes registers product CRUD endpoints on the given Chi router.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type productRequest struct {
	Name        string                `json:"name"`
	Sku         string                `json:"sku"`
	Image       string                `json:"image"`
	Thumbnail   string                `json:"thumbnail"`
	Description string                `json:"description"`
	Price       int64                 `json:"price"`
	UseStock    bool                  `json:"useStock"`
	Stock       int32                 `json:"stock"`
	Addons      []database.AddonGroup `json:"addons"`
}

type productResponse struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Sku         string                `json:"sku"`
	Image       *string               `json:"image"`
	Thumbnail   *string               `json:"thumbnail"`
	Description string                `json:"description"`
	Price       int64                 `json:"price"`
	UseStock    bool                  `json:"useStock"`
	Stock       int32                 `json:"stock"`
	Addons      []database.AddonGroup `json:"addons"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func toProductResponse(p database.Product) productResponse {
	resp := productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Sku:         p.Sku,
		Description: p.Description,
		Price:       p.Price,
		UseStock:    p.UseStock,
		Stock:       p.Stock,
		Addons:      p.Addons,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Image.Valid {
		resp.Image = &p.Image.String
	}
	if p.Thumbnail.Valid {
		resp.Thumbnail = &p.Thumbnail.String
	}
	if resp.Addons == nil {
		resp.Addons = []database.AddonGroup{}
	}
	return resp
}

// --- Helpers ---

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// validateProductRequest returns field-keyed error messages, empty when valid.
func validateProductRequest(req productRequest) map[string]string {
	fieldErrs := map[string]string{}
	if req.Name == "" {
		fieldErrs["name"] = "name is required"
	}
	if req.Price < 500 {
		fieldErrs["price"] = "price must be at least 500"
	}
	if req.Stock < 0 {
		fieldErrs["stock"] = "stock must be >= 0"
	}
	for i, group := range req.Addons {
		key := fmt.Sprintf("addons[%d]", i)
		if group.Name == "" {
			fieldErrs[key] = "addon group name is required"
			continue
		}
		if !enum.IsValidAddonType(group.Type) {
			fieldErrs[key] = "addon group type must be one or multiple"
			continue
		}
		if len(group.Items) == 0 {
			fieldErrs[key] = "addon group must have at least one item"
			continue
		}
		for j, item := range group.Items {
			if item.Name == "" {
				fieldErrs[fmt.Sprintf("%s.items[%d]", key, j)] = "addon item name is required"
			} else if item.Price < 0 {
				fieldErrs[fmt.Sprintf("%s.items[%d]", key, j)] = "addon item price must be >= 0"
			}
		}
	}
	return fieldErrs
}

func (h *ProductHandler) invalidateMenuCache(r *http.Request) {
	if err := h.invalidator.Invalidate(r.Context(), cache.TagProducts, cache.TagCustomerCatalog); err != nil {
		log.Printf("ERROR: invalidate product cache: %v", err)
	}
}

// --- Handlers ---

// List returns all non-deleted products, optionally filtered by ?q=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		products []database.Product
		err      error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		products, err = h.store.SearchProducts(r.Context(), q)
	} else {
		products, err = h.store.ListProducts(r.Context())
	}
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single product by ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Create adds a new product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if fieldErrs := validateProductRequest(req); len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fieldErrs})
		return
	}

	image := pgtype.Text{}
	if req.Image != "" {
		image = pgtype.Text{String: req.Image, Valid: true}
	}
	thumbnail := pgtype.Text{}
	if req.Thumbnail != "" {
		thumbnail = pgtype.Text{String: req.Thumbnail, Valid: true}
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		Name:        req.Name,
		Sku:         req.Sku,
		Image:       image,
		Thumbnail:   thumbnail,
		Description: req.Description,
		Price:       req.Price,
		UseStock:    req.UseStock,
		Stock:       req.Stock,
		Addons:      req.Addons,
		AdminID:     claims.AdminID,
	})
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.invalidateMenuCache(r)
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update modifies an existing product.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if fieldErrs := validateProductRequest(req); len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fieldErrs})
		return
	}

	image := pgtype.Text{}
	if req.Image != "" {
		image = pgtype.Text{String: req.Image, Valid: true}
	}
	thumbnail := pgtype.Text{}
	if req.Thumbnail != "" {
		thumbnail = pgtype.Text{String: req.Thumbnail, Valid: true}
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:          id,
		Name:        req.Name,
		Sku:         req.Sku,
		Image:       image,
		Thumbnail:   thumbnail,
		Description: req.Description,
		Price:       req.Price,
		UseStock:    req.UseStock,
		Stock:       req.Stock,
		Addons:      req.Addons,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: update product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.invalidateMenuCache(r)
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete soft-deletes a product by setting is_deleted=true.
// Catalogs keep referencing the ID; the menu aggregation drops it.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.SoftDeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: delete product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.invalidateMenuCache(r)
	w.WriteHeader(http.StatusNoContent)
}
