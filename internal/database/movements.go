package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createInventoryMovement = `
INSERT INTO inventory_movements (product_id, quantity, unit_price, kind)
VALUES ($1, $2, $3, $4)
RETURNING id, product_id, quantity, unit_price, kind, created_at
`

type CreateInventoryMovementParams struct {
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Kind      string
}

// CreateInventoryMovement appends a row to the stock ledger. Rows are never
// updated or deleted afterwards.
func (q *Queries) CreateInventoryMovement(ctx context.Context, arg CreateInventoryMovementParams) (InventoryMovement, error) {
	row := q.db.QueryRow(ctx, createInventoryMovement,
		arg.ProductID, arg.Quantity, arg.UnitPrice, arg.Kind)
	var m InventoryMovement
	err := row.Scan(&m.ID, &m.ProductID, &m.Quantity, &m.UnitPrice, &m.Kind, &m.CreatedAt)
	return m, err
}

const listMovementsByProduct = `
SELECT id, product_id, quantity, unit_price, kind, created_at
FROM inventory_movements
WHERE product_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListMovementsByProductParams struct {
	ProductID uuid.UUID
	Limit     int32
	Offset    int32
}

func (q *Queries) ListMovementsByProduct(ctx context.Context, arg ListMovementsByProductParams) ([]InventoryMovement, error) {
	rows, err := q.db.Query(ctx, listMovementsByProduct, arg.ProductID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryMovement
	for rows.Next() {
		var m InventoryMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Quantity, &m.UnitPrice, &m.Kind, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
