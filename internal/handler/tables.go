package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/warungmeja/api/internal/cache"
	"github.com/warungmeja/api/internal/database"
	"github.com/warungmeja/api/internal/middleware"
)

// TableStore defines the database methods needed by table handlers.
type TableStore interface {
	ListTables(ctx context.Context) ([]database.Table, error)
	GetTable(ctx context.Context, id int64) (database.Table, error)
	CreateTable(ctx context.Context, adminID uuid.UUID) (database.Table, error)
	SoftDeleteTable(ctx context.Context, id int64) (int64, error)
}

// TableHandler handles dining table endpoints.
type TableHandler struct {
	store       TableStore
	invalidator Invalidator
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore, invalidator Invalidator) *TableHandler {
	return &TableHandler{store: store, invalidator: invalidator}
}

// RegisterRoutes registers table endpoints on the given Chi router.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
}

// --- Response types ---

type tableResponse struct {
	ID          int64     `json:"id"`
	TableNumber int32     `json:"table_number"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTableResponse(t database.Table) tableResponse {
	return tableResponse{ID: t.ID, TableNumber: t.TableNumber, CreatedAt: t.CreatedAt}
}

// --- Handlers ---

// List returns all non-deleted tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single table by ID.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.GetTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Create adds a new table with the next free table number.
// Numbers are never reused; deleting table 3 leaves a gap.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	table, err := h.store.CreateTable(r.Context(), claims.AdminID)
	if err != nil {
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := h.invalidator.Invalidate(r.Context(), cache.TagTables); err != nil {
		log.Printf("ERROR: invalidate table cache: %v", err)
	}
	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// Delete soft-deletes a table.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	if _, err := h.store.SoftDeleteTable(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: delete table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := h.invalidator.Invalidate(r.Context(), cache.TagTables, cache.TableTag(id)); err != nil {
		log.Printf("ERROR: invalidate table cache: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
