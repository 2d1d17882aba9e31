package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sazon-pos/api/internal/database"
)

// AuditReader lists recorded audit events; satisfied by *service.AuditRecorder.
type AuditReader interface {
	List(ctx context.Context, limit, offset int32) ([]database.AuditEvent, error)
}

// AuditHandler serves the admin audit trail.
type AuditHandler struct {
	reader AuditReader
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(reader AuditReader) *AuditHandler {
	return &AuditHandler{reader: reader}
}

// RegisterRoutes registers audit endpoints. Mounted behind
// RequireRole(ADMIN) by the router.
func (h *AuditHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type auditEventResponse struct {
	ID          uuid.UUID `json:"id"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	Description string    `json:"description"`
	Actor       string    `json:"actor"`
	IP          *string   `json:"ip"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)
	events, err := h.reader.List(r.Context(), limit, offset)
	if err != nil {
		internalError(w, "list audit events", err)
		return
	}

	resp := make([]auditEventResponse, len(events))
	for i, e := range events {
		resp[i] = auditEventResponse{
			ID:          e.ID,
			Action:      e.Action,
			EntityType:  e.EntityType,
			EntityID:    e.EntityID,
			Description: e.Description,
			Actor:       e.Actor,
			CreatedAt:   e.CreatedAt,
		}
		if e.IP.Valid {
			resp[i].IP = &e.IP.String
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
