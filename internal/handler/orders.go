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
	"github.com/warungmeja/api/internal/cart"
	"github.com/warungmeja/api/internal/database"
	"github.com/warungmeja/api/internal/enum"
	"github.com/warungmeja/api/internal/service"
	"github.com/warungmeja/api/internal/ws"
)

// OrderStore defines the database methods needed by order handlers.
type OrderStore interface {
	ListOrders(ctx context.Context) ([]database.Order, error)
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// Checkouter commits a cart into an order. Satisfied by *service.CheckoutService.
type Checkouter interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
}

// Broadcaster pushes order events to connected admin dashboards.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastJSON(eventType string, payload interface{})
}

// OrderHandler handles checkout and admin order endpoints.
type OrderHandler struct {
	store    OrderStore
	checkout Checkouter
	engine   *cart.Engine
	sessions cart.Store
	hub      Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, checkout Checkouter, engine *cart.Engine, sessions cart.Store, hub Broadcaster) *OrderHandler {
	return &OrderHandler{store: store, checkout: checkout, engine: engine, sessions: sessions, hub: hub}
}

// RegisterRoutes registers admin order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// RegisterPublicRoutes registers the customer checkout endpoint.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
}

// --- Request / Response types ---

type checkoutRequest struct {
	CustomerName  string `json:"customer_name"`
	PhoneNumber   string `json:"phone_number"`
	PaymentMethod string `json:"payment_method"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID            int64           `json:"id"`
	CustomerName  string          `json:"customer_name"`
	PhoneNumber   string          `json:"phone_number"`
	CartItems     json.RawMessage `json:"cart_items"`
	Status        string          `json:"status"`
	PaymentMethod *string         `json:"payment_method"`
	PaymentLink   *string         `json:"payment_link"`
	TableID       int64           `json:"table_id"`
	TableNumber   int32           `json:"table_number"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type checkoutResponse struct {
	Order  orderResponse `json:"order"`
	Totals cart.Totals   `json:"totals"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		PhoneNumber:  o.PhoneNumber,
		CartItems:    o.CartItems,
		Status:       o.Status,
		TableID:      o.TableID,
		TableNumber:  o.TableNumber,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	if o.PaymentMethod.Valid {
		resp.PaymentMethod = &o.PaymentMethod.String
	}
	if o.PaymentLink.Valid {
		resp.PaymentLink = &o.PaymentLink.String
	}
	return resp
}

// --- Handlers ---

// Checkout turns the session's cart into an unpaid order. The table
// comes from the session's table context, set when the customer scanned
// the table QR code.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.PaymentMethod != "" && !enum.IsValidPaymentMethod(req.PaymentMethod) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment method"})
		return
	}

	items, err := h.engine.Items(r.Context(), sid)
	if err != nil {
		log.Printf("ERROR: load cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	tc, err := h.sessions.LoadTableContext(r.Context(), sid)
	if err != nil {
		log.Printf("ERROR: load table context: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if tc.ID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no table selected"})
		return
	}

	result, err := h.checkout.Checkout(r.Context(), service.CheckoutRequest{
		CustomerName:  req.CustomerName,
		PhoneNumber:   req.PhoneNumber,
		PaymentMethod: req.PaymentMethod,
		TableID:       tc.ID,
		Items:         items,
	})
	if err != nil {
		status, msg := checkoutErrorStatus(err)
		if status == http.StatusInternalServerError {
			log.Printf("ERROR: checkout: %v", err)
		}
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	if err := h.engine.Clear(r.Context(), sid); err != nil {
		log.Printf("ERROR: clear cart after checkout: %v", err)
	}

	resp := checkoutResponse{Order: toOrderResponse(result.Order), Totals: result.Totals}
	h.hub.BroadcastJSON(ws.EventOrderCreated, resp.Order)
	writeJSON(w, http.StatusCreated, resp)
}

func checkoutErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrCustomerName),
		errors.Is(err, service.ErrPhoneNumber),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrMissingRequired):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrTableNotFound),
		errors.Is(err, service.ErrProductNotFound):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// List returns all orders, newest first, optionally filtered by ?status=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !enum.IsValidOrderStatus(statusFilter) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	orders, err := h.store.ListOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		if statusFilter != "" && o.Status != statusFilter {
			continue
		}
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single order by ID.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateStatus moves an order along its lifecycle. Invalid jumps, like
// done back to unpaid, are rejected.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !enum.IsValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if !enum.CanTransitionOrderStatus(order.Status, req.Status) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("cannot transition order from %s to %s", order.Status, req.Status),
		})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:     id,
		Status: req.Status,
	})
	if err != nil {
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(updated)
	h.hub.BroadcastJSON(ws.EventOrderStatusChanged, resp)
	writeJSON(w, http.StatusOK, resp)
}
