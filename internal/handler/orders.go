package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sazon-pos/api/internal/database"
	"github.com/sazon-pos/api/internal/enum"
	"github.com/sazon-pos/api/internal/middleware"
	"github.com/sazon-pos/api/internal/service"
	"github.com/sazon-pos/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.OrderResult, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, target string) (*database.Order, error)
	RejectOrder(ctx context.Context, orderID uuid.UUID) (*database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderLine, error)
	ListOrdersByCustomer(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error)
	ListOpenOrders(ctx context.Context, arg database.ListOpenOrdersParams) ([]database.Order, error)
}

// Auditor records audit events; satisfied by *service.AuditRecorder.
type Auditor interface {
	Record(ctx context.Context, actor service.Actor, action, entityType, entityID, description string)
}

// Broadcaster pushes events to the live kitchen feed; satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	audit Auditor
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, audit Auditor, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, audit: audit, hub: hub}
}

// RegisterCustomerRoutes registers the endpoints any authenticated user may
// call; ownership is checked per request.
func (h *OrderHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/", h.Place)
	r.Get("/mine", h.ListMine)
	r.Get("/{id}", h.Get)
}

// RegisterStaffRoutes registers the kitchen/delivery pipeline endpoints.
// Mounted behind RequireRole(ADMIN, STAFF) by the router.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/", h.ListOpen)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/reject", h.Reject)
}

// --- Request / Response types ---

type placeOrderRequest struct {
	Items            []cartItemRequest `json:"items"`
	PaymentMethodID  string            `json:"payment_method_id"`
	PaymentReference string            `json:"payment_reference"`
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	CustomerID       uuid.UUID           `json:"customer_id"`
	Status           string              `json:"status"`
	Total            string              `json:"total"`
	PaymentReference *string             `json:"payment_reference"`
	ApprovedBy       *uuid.UUID          `json:"approved_by"`
	ApprovedAt       *time.Time          `json:"approved_at"`
	CreatedAt        time.Time           `json:"created_at"`
	Lines            []orderLineResponse `json:"lines,omitempty"`
}

type orderLineResponse struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Quantity     int32     `json:"quantity"`
	UnitPrice    string    `json:"unit_price"`
	LineSubtotal string    `json:"line_subtotal"`
}

func toOrderResponse(o database.Order, lines []database.OrderLine) orderResponse {
	resp := orderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Status:     o.Status,
		Total:      numericToString(o.Total),
		CreatedAt:  o.CreatedAt,
	}
	if o.PaymentReference.Valid {
		resp.PaymentReference = &o.PaymentReference.String
	}
	if o.ApprovedBy.Valid {
		id := uuid.UUID(o.ApprovedBy.Bytes)
		resp.ApprovedBy = &id
	}
	if o.ApprovedAt.Valid {
		resp.ApprovedAt = &o.ApprovedAt.Time
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ID:           l.ID,
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			UnitPrice:    numericToString(l.UnitPrice),
			LineSubtotal: numericToString(l.LineSubtotal),
		})
	}
	return resp
}

func requestActor(r *http.Request) service.Actor {
	actor := service.Actor{Name: "anonymous", IP: r.RemoteAddr}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		actor.Name = claims.FullName
	}
	return actor
}

// writeServiceError maps service sentinel errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidProductID),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrNegativeDiscount),
		errors.Is(err, service.ErrPaymentMethod):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrAlreadyInvoiced),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrApprovalRequired),
		errors.Is(err, service.ErrStatusConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		internalError(w, op, err)
	}
}

// --- Handlers ---

// Place creates an order for the authenticated customer.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CartItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CartItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	result, err := h.svc.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		CustomerID:       claims.UserID,
		Items:            items,
		PaymentMethodID:  req.PaymentMethodID,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		writeServiceError(w, "place order", err)
		return
	}

	h.audit.Record(r.Context(), requestActor(r), enum.AuditOrderPlaced,
		"order", result.Order.ID.String(),
		fmt.Sprintf("order placed, %d line(s), total %s", len(result.Lines), numericToString(result.Order.Total)))

	h.hub.Broadcast(ws.NewOrderEvent(result.Order.ID, result.Order.Status))

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Lines))
}

// ListMine returns the authenticated customer's orders, newest first.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit, offset := paginationParams(r, 20)
	orders, err := h.store.ListOrdersByCustomer(r.Context(), database.ListOrdersByCustomerParams{
		CustomerID: claims.UserID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		internalError(w, "list my orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListOpen returns the staff pipeline: every order not yet delivered or
// rejected.
func (h *OrderHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)
	orders, err := h.store.ListOpenOrders(r.Context(), database.ListOpenOrdersParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		internalError(w, "list open orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order with its lines. Customers may only read their own
// orders; staff and admin may read any.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
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
		internalError(w, "get order", err)
		return
	}

	if claims.Role == enum.UserRoleCustomer && order.CustomerID != claims.UserID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	lines, err := h.store.ListOrderLinesByOrder(r.Context(), id)
	if err != nil {
		internalError(w, "list order lines", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, lines))
}

// UpdateStatus advances an order along the delivery pipeline.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.svc.TransitionStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	h.audit.Record(r.Context(), requestActor(r), enum.AuditOrderStatusChanged,
		"order", order.ID.String(), fmt.Sprintf("status changed to %s", order.Status))

	h.hub.Broadcast(ws.NewOrderEvent(order.ID, order.Status))

	writeJSON(w, http.StatusOK, toOrderResponse(*order, nil))
}

// Reject cancels an order and voids its invoice if one was generated.
func (h *OrderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.RejectOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, "reject order", err)
		return
	}

	h.audit.Record(r.Context(), requestActor(r), enum.AuditOrderRejected,
		"order", order.ID.String(), "order rejected, invoice voided if present")

	h.hub.Broadcast(ws.NewOrderEvent(order.ID, order.Status))

	writeJSON(w, http.StatusOK, toOrderResponse(*order, nil))
}
