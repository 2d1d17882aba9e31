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

// InvoiceServicer defines the service methods needed by invoice handlers.
// Satisfied by *service.InvoiceService; narrow interface for testability.
type InvoiceServicer interface {
	GenerateInvoiceForApprovedOrder(ctx context.Context, orderID, approvedBy uuid.UUID) (*service.InvoiceResult, error)
	CreateDirectInvoice(ctx context.Context, req service.DirectInvoiceRequest) (*service.InvoiceResult, error)
}

// InvoiceStore defines the database methods needed by invoice read handlers.
type InvoiceStore interface {
	GetInvoice(ctx context.Context, id uuid.UUID) (database.Invoice, error)
	ListInvoiceLinesByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]database.InvoiceLine, error)
	ListInvoicesByCustomer(ctx context.Context, arg database.ListInvoicesByCustomerParams) ([]database.Invoice, error)
}

// InvoiceHandler handles invoicing endpoints.
type InvoiceHandler struct {
	svc   InvoiceServicer
	store InvoiceStore
	audit Auditor
	hub   Broadcaster
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(svc InvoiceServicer, store InvoiceStore, audit Auditor, hub Broadcaster) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, store: store, audit: audit, hub: hub}
}

// RegisterCustomerRoutes registers endpoints any authenticated user may
// call; ownership is checked per request.
func (h *InvoiceHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Get("/mine", h.ListMine)
	r.Get("/{id}", h.Get)
}

// RegisterStaffOrderRoutes registers the approval endpoint on the staff
// order pipeline. Mounted behind RequireRole(ADMIN, STAFF) by the router.
func (h *InvoiceHandler) RegisterStaffOrderRoutes(r chi.Router) {
	r.Post("/{id}/approve", h.ApproveOrder)
}

// RegisterStaffInvoiceRoutes registers point-of-sale invoicing. Mounted
// behind RequireRole(ADMIN, STAFF) by the router.
func (h *InvoiceHandler) RegisterStaffInvoiceRoutes(r chi.Router) {
	r.Post("/direct", h.CreateDirect)
}

// --- Request / Response types ---

type directInvoiceRequest struct {
	CustomerID      string                  `json:"customer_id"`
	Items           []directSaleItemRequest `json:"items"`
	PaymentMethodID string                  `json:"payment_method_id"`
	TaxID           string                  `json:"tax_id"`
	CustomerName    string                  `json:"customer_name"`
	PaymentNote     string                  `json:"payment_note"`
}

type directSaleItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type invoiceResponse struct {
	ID              uuid.UUID             `json:"id"`
	OrderID         *uuid.UUID            `json:"order_id"`
	Origin          string                `json:"origin"`
	CustomerID      uuid.UUID             `json:"customer_id"`
	IssuedAt        time.Time             `json:"issued_at"`
	CustomerName    string                `json:"customer_name"`
	TaxID           string                `json:"tax_id"`
	Subtotal        string                `json:"subtotal"`
	Tax             string                `json:"tax"`
	Total           string                `json:"total"`
	Status          string                `json:"status"`
	PaymentMethodID uuid.UUID             `json:"payment_method_id"`
	PaymentNote     *string               `json:"payment_note"`
	Lines           []invoiceLineResponse `json:"lines,omitempty"`
}

type invoiceLineResponse struct {
	ID           uuid.UUID `json:"id"`
	ProductName  string    `json:"product_name"`
	Quantity     int32     `json:"quantity"`
	UnitPrice    string    `json:"unit_price"`
	LineSubtotal string    `json:"line_subtotal"`
}

func toInvoiceResponse(inv database.Invoice, lines []database.InvoiceLine) invoiceResponse {
	resp := invoiceResponse{
		ID:              inv.ID,
		Origin:          "Direct sale",
		CustomerID:      inv.CustomerID,
		IssuedAt:        inv.IssuedAt,
		CustomerName:    inv.CustomerName,
		TaxID:           inv.TaxID,
		Subtotal:        numericToString(inv.Subtotal),
		Tax:             numericToString(inv.Tax),
		Total:           numericToString(inv.Total),
		Status:          inv.Status,
		PaymentMethodID: inv.PaymentMethodID,
	}
	if inv.OrderID.Valid {
		id := uuid.UUID(inv.OrderID.Bytes)
		resp.OrderID = &id
		resp.Origin = fmt.Sprintf("Order %s", id)
	}
	if inv.PaymentNote.Valid {
		resp.PaymentNote = &inv.PaymentNote.String
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, invoiceLineResponse{
			ID:           l.ID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			UnitPrice:    numericToString(l.UnitPrice),
			LineSubtotal: numericToString(l.LineSubtotal),
		})
	}
	return resp
}

// --- Handlers ---

// ApproveOrder approves a pending order: the invoice is generated and the
// order moves into the kitchen, atomically.
func (h *InvoiceHandler) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.svc.GenerateInvoiceForApprovedOrder(r.Context(), orderID, claims.UserID)
	if err != nil {
		writeServiceError(w, "approve order", err)
		return
	}

	h.audit.Record(r.Context(), requestActor(r), enum.AuditInvoiceGenerated,
		"invoice", result.Invoice.ID.String(),
		fmt.Sprintf("invoice generated for order %s, total %s", orderID, numericToString(result.Invoice.Total)))

	h.hub.Broadcast(ws.NewOrderEvent(orderID, enum.OrderStatusInKitchen))

	writeJSON(w, http.StatusCreated, toInvoiceResponse(result.Invoice, result.Lines))
}

// CreateDirect issues a point-of-sale invoice with no backing order.
func (h *InvoiceHandler) CreateDirect(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req directInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Walk-in sales are booked against the staff member's own account
	// unless an explicit customer is given.
	customerID := claims.UserID
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
			return
		}
		customerID = id
	}

	items := make([]service.DirectSaleItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.DirectSaleItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	result, err := h.svc.CreateDirectInvoice(r.Context(), service.DirectInvoiceRequest{
		CustomerID:      customerID,
		Items:           items,
		PaymentMethodID: req.PaymentMethodID,
		TaxID:           req.TaxID,
		CustomerName:    req.CustomerName,
		PaymentNote:     req.PaymentNote,
	})
	if err != nil {
		writeServiceError(w, "create direct invoice", err)
		return
	}

	h.audit.Record(r.Context(), requestActor(r), enum.AuditInvoiceDirect,
		"invoice", result.Invoice.ID.String(),
		fmt.Sprintf("direct sale, total %s", numericToString(result.Invoice.Total)))

	writeJSON(w, http.StatusCreated, toInvoiceResponse(result.Invoice, result.Lines))
}

// ListMine returns the authenticated customer's invoices, newest first.
func (h *InvoiceHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit, offset := paginationParams(r, 20)
	invoices, err := h.store.ListInvoicesByCustomer(r.Context(), database.ListInvoicesByCustomerParams{
		CustomerID: claims.UserID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		internalError(w, "list my invoices", err)
		return
	}

	resp := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		resp[i] = toInvoiceResponse(inv, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one invoice with its lines. Customers may only read their
// own invoices; staff and admin may read any.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid invoice ID"})
		return
	}

	invoice, err := h.store.GetInvoice(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "invoice not found"})
			return
		}
		internalError(w, "get invoice", err)
		return
	}

	if claims.Role == enum.UserRoleCustomer && invoice.CustomerID != claims.UserID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	lines, err := h.store.ListInvoiceLinesByInvoice(r.Context(), id)
	if err != nil {
		internalError(w, "list invoice lines", err)
		return
	}

	writeJSON(w, http.StatusOK, toInvoiceResponse(invoice, lines))
}
