package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (customer_id, status, total, payment_reference)
VALUES ($1, $2, $3, $4)
RETURNING id, customer_id, status, total, payment_reference, approved_by, approved_at, created_at
`

type CreateOrderParams struct {
	CustomerID       uuid.UUID
	Status           string
	Total            pgtype.Numeric
	PaymentReference pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.CustomerID, arg.Status, arg.Total, arg.PaymentReference)
	return scanOrder(row)
}

const createOrderLine = `
INSERT INTO order_lines (order_id, product_id, product_name, unit_price, quantity, line_subtotal)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, product_id, product_name, unit_price, quantity, line_subtotal
`

type CreateOrderLineParams struct {
	OrderID      uuid.UUID
	ProductID    uuid.UUID
	ProductName  string
	UnitPrice    pgtype.Numeric
	Quantity     int32
	LineSubtotal pgtype.Numeric
}

func (q *Queries) CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) (OrderLine, error) {
	row := q.db.QueryRow(ctx, createOrderLine,
		arg.OrderID, arg.ProductID, arg.ProductName, arg.UnitPrice, arg.Quantity, arg.LineSubtotal)
	var l OrderLine
	err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName,
		&l.UnitPrice, &l.Quantity, &l.LineSubtotal)
	return l, err
}

const getOrder = `
SELECT id, customer_id, status, total, payment_reference, approved_by, approved_at, created_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `
SELECT id, customer_id, status, total, payment_reference, approved_by, approved_at, created_at
FROM orders
WHERE id = $1
FOR NO KEY UPDATE
`

// GetOrderForUpdate locks the order row, serializing concurrent approvals
// and status transitions against it.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrderLinesByOrder = `
SELECT id, order_id, product_id, product_name, unit_price, quantity, line_subtotal
FROM order_lines
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLinesByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName,
			&l.UnitPrice, &l.Quantity, &l.LineSubtotal); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const listOrdersByCustomer = `
SELECT id, customer_id, status, total, payment_reference, approved_by, approved_at, created_at
FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersByCustomerParams struct {
	CustomerID uuid.UUID
	Limit      int32
	Offset     int32
}

func (q *Queries) ListOrdersByCustomer(ctx context.Context, arg ListOrdersByCustomerParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByCustomer, arg.CustomerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOpenOrders = `
SELECT id, customer_id, status, total, payment_reference, approved_by, approved_at, created_at
FROM orders
WHERE status NOT IN ('DELIVERED', 'REJECTED')
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListOpenOrdersParams struct {
	Limit  int32
	Offset int32
}

// ListOpenOrders returns orders still in the kitchen/delivery pipeline,
// newest first, for the staff dashboard.
func (q *Queries) ListOpenOrders(ctx context.Context, arg ListOpenOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOpenOrders, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const updateOrderStatus = `
UPDATE orders
SET status = $2
WHERE id = $1 AND status = $3
RETURNING id, customer_id, status, total, payment_reference, approved_by, approved_at, created_at
`

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	FromStatus string
}

// UpdateOrderStatus is a compare-and-swap write: it only succeeds while the
// row still holds FromStatus. pgx.ErrNoRows means a concurrent transition won.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.FromStatus)
	return scanOrder(row)
}

const approveOrder = `
UPDATE orders
SET status = $2, approved_by = $3, approved_at = now()
WHERE id = $1 AND status = $4
RETURNING id, customer_id, status, total, payment_reference, approved_by, approved_at, created_at
`

type ApproveOrderParams struct {
	ID         uuid.UUID
	Status     string
	ApprovedBy pgtype.UUID
	FromStatus string
}

func (q *Queries) ApproveOrder(ctx context.Context, arg ApproveOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, approveOrder, arg.ID, arg.Status, arg.ApprovedBy, arg.FromStatus)
	return scanOrder(row)
}

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &o.Total,
		&o.PaymentReference, &o.ApprovedBy, &o.ApprovedAt, &o.CreatedAt)
	return o, err
}

func collectOrders(rows interface {
	Next() bool
	Scan(...any) error
	Close()
	Err() error
}) ([]Order, error) {
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &o.Total,
			&o.PaymentReference, &o.ApprovedBy, &o.ApprovedAt, &o.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
