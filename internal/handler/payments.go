package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sazon-pos/api/internal/database"
)

// PaymentMethodStore defines the database methods needed here.
type PaymentMethodStore interface {
	ListPaymentMethods(ctx context.Context) ([]database.PaymentMethod, error)
}

// PaymentMethodHandler serves the configured payment methods.
type PaymentMethodHandler struct {
	store PaymentMethodStore
}

// NewPaymentMethodHandler creates a new PaymentMethodHandler.
func NewPaymentMethodHandler(store PaymentMethodStore) *PaymentMethodHandler {
	return &PaymentMethodHandler{store: store}
}

// RegisterRoutes registers payment method endpoints.
func (h *PaymentMethodHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type paymentMethodResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (h *PaymentMethodHandler) List(w http.ResponseWriter, r *http.Request) {
	methods, err := h.store.ListPaymentMethods(r.Context())
	if err != nil {
		internalError(w, "list payment methods", err)
		return
	}

	resp := make([]paymentMethodResponse, len(methods))
	for i, m := range methods {
		resp[i] = paymentMethodResponse{ID: m.ID, Name: m.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}
