package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createInvoice = `
INSERT INTO invoices (order_id, customer_id, customer_name, tax_id, subtotal, tax, total, status, payment_method_id, payment_note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, order_id, customer_id, issued_at, customer_name, tax_id, subtotal, tax, total, status, payment_method_id, payment_note
`

type CreateInvoiceParams struct {
	OrderID         pgtype.UUID
	CustomerID      uuid.UUID
	CustomerName    string
	TaxID           string
	Subtotal        pgtype.Numeric
	Tax             pgtype.Numeric
	Total           pgtype.Numeric
	Status          string
	PaymentMethodID uuid.UUID
	PaymentNote     pgtype.Text
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, createInvoice,
		arg.OrderID, arg.CustomerID, arg.CustomerName, arg.TaxID,
		arg.Subtotal, arg.Tax, arg.Total, arg.Status, arg.PaymentMethodID, arg.PaymentNote)
	return scanInvoice(row)
}

const createInvoiceLine = `
INSERT INTO invoice_lines (invoice_id, product_name, quantity, unit_price, line_subtotal)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, invoice_id, product_name, quantity, unit_price, line_subtotal
`

type CreateInvoiceLineParams struct {
	InvoiceID    uuid.UUID
	ProductName  string
	Quantity     int32
	UnitPrice    pgtype.Numeric
	LineSubtotal pgtype.Numeric
}

func (q *Queries) CreateInvoiceLine(ctx context.Context, arg CreateInvoiceLineParams) (InvoiceLine, error) {
	row := q.db.QueryRow(ctx, createInvoiceLine,
		arg.InvoiceID, arg.ProductName, arg.Quantity, arg.UnitPrice, arg.LineSubtotal)
	var l InvoiceLine
	err := row.Scan(&l.ID, &l.InvoiceID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.LineSubtotal)
	return l, err
}

const getInvoice = `
SELECT id, order_id, customer_id, issued_at, customer_name, tax_id, subtotal, tax, total, status, payment_method_id, payment_note
FROM invoices
WHERE id = $1
`

func (q *Queries) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, id))
}

const getInvoiceByOrder = `
SELECT id, order_id, customer_id, issued_at, customer_name, tax_id, subtotal, tax, total, status, payment_method_id, payment_note
FROM invoices
WHERE order_id = $1
`

// GetInvoiceByOrder is the "already invoiced" pre-check. At most one row can
// exist per order (partial unique index on order_id).
func (q *Queries) GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoiceByOrder, orderID))
}

const listInvoiceLinesByInvoice = `
SELECT id, invoice_id, product_name, quantity, unit_price, line_subtotal
FROM invoice_lines
WHERE invoice_id = $1
ORDER BY id
`

func (q *Queries) ListInvoiceLinesByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceLine, error) {
	rows, err := q.db.Query(ctx, listInvoiceLinesByInvoice, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductName, &l.Quantity,
			&l.UnitPrice, &l.LineSubtotal); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const listInvoicesByCustomer = `
SELECT id, order_id, customer_id, issued_at, customer_name, tax_id, subtotal, tax, total, status, payment_method_id, payment_note
FROM invoices
WHERE customer_id = $1
ORDER BY issued_at DESC
LIMIT $2 OFFSET $3
`

type ListInvoicesByCustomerParams struct {
	CustomerID uuid.UUID
	Limit      int32
	Offset     int32
}

func (q *Queries) ListInvoicesByCustomer(ctx context.Context, arg ListInvoicesByCustomerParams) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoicesByCustomer, arg.CustomerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.OrderID, &inv.CustomerID, &inv.IssuedAt,
			&inv.CustomerName, &inv.TaxID, &inv.Subtotal, &inv.Tax, &inv.Total,
			&inv.Status, &inv.PaymentMethodID, &inv.PaymentNote); err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

const voidInvoice = `
UPDATE invoices
SET status = 'VOID'
WHERE id = $1 AND status = 'PAID'
RETURNING id, order_id, customer_id, issued_at, customer_name, tax_id, subtotal, tax, total, status, payment_method_id, payment_note
`

// VoidInvoice marks an invoice VOID. Financial records are append-only:
// invoices are never deleted.
func (q *Queries) VoidInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, voidInvoice, id))
}

const getPaymentMethodByName = `
SELECT id, name FROM payment_methods WHERE name = $1
`

func (q *Queries) GetPaymentMethodByName(ctx context.Context, name string) (PaymentMethod, error) {
	var pm PaymentMethod
	err := q.db.QueryRow(ctx, getPaymentMethodByName, name).Scan(&pm.ID, &pm.Name)
	return pm, err
}

const getPaymentMethod = `
SELECT id, name FROM payment_methods WHERE id = $1
`

func (q *Queries) GetPaymentMethod(ctx context.Context, id uuid.UUID) (PaymentMethod, error) {
	var pm PaymentMethod
	err := q.db.QueryRow(ctx, getPaymentMethod, id).Scan(&pm.ID, &pm.Name)
	return pm, err
}

const listPaymentMethods = `
SELECT id, name FROM payment_methods ORDER BY name
`

func (q *Queries) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	rows, err := q.db.Query(ctx, listPaymentMethods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentMethod
	for rows.Next() {
		var pm PaymentMethod
		if err := rows.Scan(&pm.ID, &pm.Name); err != nil {
			return nil, err
		}
		items = append(items, pm)
	}
	return items, rows.Err()
}

func scanInvoice(row interface{ Scan(...any) error }) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.OrderID, &inv.CustomerID, &inv.IssuedAt,
		&inv.CustomerName, &inv.TaxID, &inv.Subtotal, &inv.Tax, &inv.Total,
		&inv.Status, &inv.PaymentMethodID, &inv.PaymentNote)
	return inv, err
}
