package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createAuditEvent = `
INSERT INTO audit_events (action, entity_type, entity_id, description, actor, ip)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, action, entity_type, entity_id, description, actor, ip, created_at
`

type CreateAuditEventParams struct {
	Action      string
	EntityType  string
	EntityID    string
	Description string
	Actor       string
	IP          pgtype.Text
}

func (q *Queries) CreateAuditEvent(ctx context.Context, arg CreateAuditEventParams) (AuditEvent, error) {
	row := q.db.QueryRow(ctx, createAuditEvent,
		arg.Action, arg.EntityType, arg.EntityID, arg.Description, arg.Actor, arg.IP)
	var e AuditEvent
	err := row.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID,
		&e.Description, &e.Actor, &e.IP, &e.CreatedAt)
	return e, err
}

const listAuditEvents = `
SELECT id, action, entity_type, entity_id, description, actor, ip, created_at
FROM audit_events
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListAuditEventsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListAuditEvents(ctx context.Context, arg ListAuditEventsParams) ([]AuditEvent, error) {
	rows, err := q.db.Query(ctx, listAuditEvents, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditEvent
	for rows.Next() {
		var e AuditEvent
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID,
			&e.Description, &e.Actor, &e.IP, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
