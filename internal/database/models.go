package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// User is a row in the users table. Customers and staff share the table;
// Role distinguishes them.
type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	TaxID          pgtype.Text
	CreatedAt      time.Time
}

// Category is a row in the categories table.
type Category struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	CreatedAt   time.Time
}

// Product is a row in the products table. Stock is mutated only through
// guarded decrements that pair with an inventory_movements row.
type Product struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Name       string
	UnitPrice  pgtype.Numeric
	Stock      int32
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Order is a row in the orders table. Lines are immutable after creation;
// only Status (and the approval columns) change afterwards.
type Order struct {
	ID               uuid.UUID
	CustomerID       uuid.UUID
	Status           string
	Total            pgtype.Numeric
	PaymentReference pgtype.Text
	ApprovedBy       pgtype.UUID
	ApprovedAt       pgtype.Timestamptz
	CreatedAt        time.Time
}

// OrderLine is a row in the order_lines table. ProductName and UnitPrice are
// snapshots taken at order time; they never recompute from live product data.
type OrderLine struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    uuid.UUID
	ProductName  string
	UnitPrice    pgtype.Numeric
	Quantity     int32
	LineSubtotal pgtype.Numeric
}

// Invoice is a row in the invoices table. OrderID is null for direct
// point-of-sale invoices. Immutable after creation except the VOID
// status transition.
type Invoice struct {
	ID              uuid.UUID
	OrderID         pgtype.UUID
	CustomerID      uuid.UUID
	IssuedAt        time.Time
	CustomerName    string
	TaxID           string
	Subtotal        pgtype.Numeric
	Tax             pgtype.Numeric
	Total           pgtype.Numeric
	Status          string
	PaymentMethodID uuid.UUID
	PaymentNote     pgtype.Text
}

// InvoiceLine is a row in the invoice_lines table.
type InvoiceLine struct {
	ID           uuid.UUID
	InvoiceID    uuid.UUID
	ProductName  string
	Quantity     int32
	UnitPrice    pgtype.Numeric
	LineSubtotal pgtype.Numeric
}

// InventoryMovement is a row in the append-only inventory_movements ledger.
type InventoryMovement struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Kind      string
	CreatedAt time.Time
}

// PaymentMethod is a row in the payment_methods table.
type PaymentMethod struct {
	ID   uuid.UUID
	Name string
}

// AuditEvent is a row in the audit_events table.
type AuditEvent struct {
	ID          uuid.UUID
	Action      string
	EntityType  string
	EntityID    string
	Description string
	Actor       string
	IP          pgtype.Text
	CreatedAt   time.Time
}
