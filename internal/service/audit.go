package service

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sazon-pos/api/internal/database"
)

// Actor identifies who performed an audited action. Populated by handlers
// from the authenticated user and the request's remote address.
type Actor struct {
	Name string
	IP   string
}

// AuditStore defines the DB methods needed by the audit recorder.
type AuditStore interface {
	CreateAuditEvent(ctx context.Context, arg database.CreateAuditEventParams) (database.AuditEvent, error)
	ListAuditEvents(ctx context.Context, arg database.ListAuditEventsParams) ([]database.AuditEvent, error)
}

// AuditRecorder writes audit events outside the transaction they describe.
// Recording is best effort: a failed write is logged and never propagated,
// so an audit outage cannot block order or invoice processing.
type AuditRecorder struct {
	store AuditStore
}

// NewAuditRecorder creates a new AuditRecorder.
func NewAuditRecorder(store AuditStore) *AuditRecorder {
	return &AuditRecorder{store: store}
}

// Record writes one audit event. Errors are logged, not returned.
func (r *AuditRecorder) Record(ctx context.Context, actor Actor, action, entityType, entityID, description string) {
	var ip pgtype.Text
	if actor.IP != "" {
		ip = pgtype.Text{String: actor.IP, Valid: true}
	}
	_, err := r.store.CreateAuditEvent(ctx, database.CreateAuditEventParams{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		Actor:       actor.Name,
		IP:          ip,
	})
	if err != nil {
		log.Printf("WARN: audit event %q not recorded: %v", action, err)
	}
}

// List returns a page of audit events, newest first.
func (r *AuditRecorder) List(ctx context.Context, limit, offset int32) ([]database.AuditEvent, error) {
	return r.store.ListAuditEvents(ctx, database.ListAuditEventsParams{Limit: limit, Offset: offset})
}
