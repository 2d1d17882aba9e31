package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sazon-pos/api/internal/database"
	"github.com/sazon-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Defaults applied when an invoice is issued without customer fiscal data.
const (
	DefaultTaxID        = "9999999999999"
	DefaultCustomerName = "Consumidor Final"
)

// CalcLine is a single line fed to ComputeInvoice. UnitPrice is always a
// snapshot taken when the order (or direct sale) was created, never the
// live catalog price.
type CalcLine struct {
	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
}

// InvoiceDraft is the pure result of an invoice calculation.
type InvoiceDraft struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeInvoice is the single calculation path for every invoice produced
// by this system. Rounding is banker's to two decimals, applied to the
// summed subtotal and to the tax, never per line. Total is clamped at zero
// when the discount exceeds subtotal plus tax.
func ComputeInvoice(lines []CalcLine, discount decimal.Decimal) (InvoiceDraft, error) {
	if len(lines) == 0 {
		return InvoiceDraft{}, ErrEmptyItems
	}
	if discount.IsNegative() {
		return InvoiceDraft{}, ErrNegativeDiscount
	}

	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity)))
	}

	subtotal := roundMoney(sum)
	tax := roundMoney(subtotal.Mul(TaxRate))
	total := subtotal.Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return InvoiceDraft{Subtotal: subtotal, Tax: tax, Total: total}, nil
}

// consistencyTolerance absorbs the half-cent drift rounding can introduce.
var consistencyTolerance = decimal.NewFromFloat(0.01)

// InvoiceConsistent verifies the arithmetic invariants of a persisted
// invoice: each line's quantity * unit price equals its line subtotal, and
// subtotal + tax equals total within rounding tolerance. Used as a guard
// before persisting and directly by tests.
func InvoiceConsistent(inv database.Invoice, lines []database.InvoiceLine) bool {
	for _, l := range lines {
		expected := numericToDecimal(l.UnitPrice).Mul(decimal.NewFromInt32(l.Quantity))
		if !roundMoney(expected).Equal(numericToDecimal(l.LineSubtotal)) {
			return false
		}
	}

	subtotal := numericToDecimal(inv.Subtotal)
	tax := numericToDecimal(inv.Tax)
	total := numericToDecimal(inv.Total)
	diff := subtotal.Add(tax).Sub(total).Abs()
	return diff.LessThanOrEqual(consistencyTolerance)
}

// InvoiceStore defines the DB methods needed by the invoicing engine.
// Satisfied by *database.Queries (and its WithTx variant).
type InvoiceStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderLine, error)
	GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (database.Invoice, error)
	CreateInvoice(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error)
	CreateInvoiceLine(ctx context.Context, arg database.CreateInvoiceLineParams) (database.InvoiceLine, error)
	ApproveOrder(ctx context.Context, arg database.ApproveOrderParams) (database.Order, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetPaymentMethod(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error)
	GetPaymentMethodByName(ctx context.Context, name string) (database.PaymentMethod, error)
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (database.Product, error)
	DecrementStock(ctx context.Context, arg database.DecrementStockParams) (database.Product, error)
	CreateInventoryMovement(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error)
}

// NewInvoiceStore creates an InvoiceStore from a DBTX (pool or tx).
type NewInvoiceStore func(db database.DBTX) InvoiceStore

// InvoiceService owns invoice creation: the approval-triggered workflow and
// direct point-of-sale sales.
type InvoiceService struct {
	pool     TxBeginner
	newStore NewInvoiceStore
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(pool TxBeginner, newStore NewInvoiceStore) *InvoiceService {
	return &InvoiceService{pool: pool, newStore: newStore}
}

// InvoiceResult is a persisted invoice with its lines.
type InvoiceResult struct {
	Invoice database.Invoice
	Lines   []database.InvoiceLine
}

// GenerateInvoiceForApprovedOrder converts an order into its invoice and
// advances the order into the kitchen, all in one transaction. Each order is
// invoiced at most once: a second call fails with ErrAlreadyInvoiced, backed
// by the unique index on invoices.order_id.
func (s *InvoiceService) GenerateInvoiceForApprovedOrder(ctx context.Context, orderID, approvedBy uuid.UUID) (*InvoiceResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	// Duplicate invoicing is a financial-integrity violation: hard stop,
	// never an idempotent return.
	if _, err := store.GetInvoiceByOrder(ctx, orderID); err == nil {
		return nil, ErrAlreadyInvoiced
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing invoice: %w", err)
	}

	if !canTransition(order.Status, enum.OrderStatusInKitchen) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, enum.OrderStatusInKitchen)
	}

	orderLines, err := store.ListOrderLinesByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}

	calcLines := make([]CalcLine, len(orderLines))
	for i, l := range orderLines {
		calcLines[i] = CalcLine{
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   numericToDecimal(l.UnitPrice),
		}
	}

	draft, err := ComputeInvoice(calcLines, decimal.Zero)
	if err != nil {
		return nil, err
	}

	customerName := DefaultCustomerName
	taxID := DefaultTaxID
	customer, err := store.GetUserByID(ctx, order.CustomerID)
	if err == nil {
		if customer.FullName != "" {
			customerName = customer.FullName
		}
		if customer.TaxID.Valid && customer.TaxID.String != "" {
			taxID = customer.TaxID.String
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	paymentMethod, err := store.GetPaymentMethodByName(ctx, enum.PaymentMethodCash)
	if err != nil {
		return nil, fmt.Errorf("get default payment method: %w", err)
	}

	if _, err := store.ApproveOrder(ctx, database.ApproveOrderParams{
		ID:         orderID,
		Status:     enum.OrderStatusInKitchen,
		ApprovedBy: pgtype.UUID{Bytes: approvedBy, Valid: true},
		FromStatus: order.Status,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("advance order status: %w", err)
	}

	invoice, err := store.CreateInvoice(ctx, database.CreateInvoiceParams{
		OrderID:         pgtype.UUID{Bytes: orderID, Valid: true},
		CustomerID:      order.CustomerID,
		CustomerName:    customerName,
		TaxID:           taxID,
		Subtotal:        decimalToNumeric(draft.Subtotal),
		Tax:             decimalToNumeric(draft.Tax),
		Total:           decimalToNumeric(draft.Total),
		Status:          enum.InvoiceStatusPaid,
		PaymentMethodID: paymentMethod.ID,
	})
	if err != nil {
		if isUniqueViolation(err, "invoices_order_id_key") {
			return nil, ErrAlreadyInvoiced
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	lines := make([]database.InvoiceLine, 0, len(orderLines))
	for _, l := range orderLines {
		line, err := store.CreateInvoiceLine(ctx, database.CreateInvoiceLineParams{
			InvoiceID:    invoice.ID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			LineSubtotal: l.LineSubtotal,
		})
		if err != nil {
			return nil, fmt.Errorf("create invoice line: %w", err)
		}
		lines = append(lines, line)
	}

	if !InvoiceConsistent(invoice, lines) {
		return nil, fmt.Errorf("invoice %s failed consistency check", invoice.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &InvoiceResult{Invoice: invoice, Lines: lines}, nil
}

// DirectSaleItem is a single item in a point-of-sale invoice.
type DirectSaleItem struct {
	ProductID string
	Quantity  int32
}

// DirectInvoiceRequest is the validated input for a point-of-sale invoice.
type DirectInvoiceRequest struct {
	CustomerID      uuid.UUID
	Items           []DirectSaleItem
	PaymentMethodID string
	TaxID           string
	CustomerName    string
	PaymentNote     string
}

// CreateDirectInvoice issues a point-of-sale invoice with no backing order.
// Stock is decremented and one inventory movement recorded per item, all in
// one transaction: if any item lacks stock nothing is written.
func (s *InvoiceService) CreateDirectInvoice(ctx context.Context, req DirectInvoiceRequest) (*InvoiceResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	type pendingLine struct {
		productID uuid.UUID
		quantity  int32
	}
	pending := make([]pendingLine, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidProductID)
		}
		pending[i] = pendingLine{productID: pid, quantity: item.Quantity}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	calcLines := make([]CalcLine, len(pending))
	for i, p := range pending {
		product, err := store.GetProductForUpdate(ctx, p.productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get product: %w", i, err)
		}

		if product.Stock < p.quantity {
			return nil, fmt.Errorf("%w: %s (requested %d, available %d)",
				ErrInsufficientStock, product.Name, p.quantity, product.Stock)
		}

		if _, err := store.DecrementStock(ctx, database.DecrementStockParams{
			ID:       p.productID,
			Quantity: p.quantity,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
			}
			return nil, fmt.Errorf("decrement stock: %w", err)
		}

		if _, err := store.CreateInventoryMovement(ctx, database.CreateInventoryMovementParams{
			ProductID: p.productID,
			Quantity:  p.quantity,
			UnitPrice: product.UnitPrice,
			Kind:      enum.MovementKindDirectSale,
		}); err != nil {
			return nil, fmt.Errorf("record inventory movement: %w", err)
		}

		calcLines[i] = CalcLine{
			ProductName: product.Name,
			Quantity:    p.quantity,
			UnitPrice:   numericToDecimal(product.UnitPrice),
		}
	}

	draft, err := ComputeInvoice(calcLines, decimal.Zero)
	if err != nil {
		return nil, err
	}

	var paymentMethod database.PaymentMethod
	if req.PaymentMethodID != "" {
		pmID, err := uuid.Parse(req.PaymentMethodID)
		if err != nil {
			return nil, ErrPaymentMethod
		}
		paymentMethod, err = store.GetPaymentMethod(ctx, pmID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrPaymentMethod
			}
			return nil, fmt.Errorf("get payment method: %w", err)
		}
	} else {
		paymentMethod, err = store.GetPaymentMethodByName(ctx, enum.PaymentMethodCash)
		if err != nil {
			return nil, fmt.Errorf("get default payment method: %w", err)
		}
	}

	customerName := req.CustomerName
	if customerName == "" {
		customerName = DefaultCustomerName
	}
	taxID := req.TaxID
	if taxID == "" {
		taxID = DefaultTaxID
	}

	var paymentNote pgtype.Text
	if req.PaymentNote != "" {
		paymentNote = pgtype.Text{String: req.PaymentNote, Valid: true}
	}

	// Direct sales are never linked to an order; OrderID stays null.
	invoice, err := store.CreateInvoice(ctx, database.CreateInvoiceParams{
		OrderID:         pgtype.UUID{},
		CustomerID:      req.CustomerID,
		CustomerName:    customerName,
		TaxID:           taxID,
		Subtotal:        decimalToNumeric(draft.Subtotal),
		Tax:             decimalToNumeric(draft.Tax),
		Total:           decimalToNumeric(draft.Total),
		Status:          enum.InvoiceStatusPaid,
		PaymentMethodID: paymentMethod.ID,
		PaymentNote:     paymentNote,
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	lines := make([]database.InvoiceLine, 0, len(calcLines))
	for _, cl := range calcLines {
		lineSubtotal := roundMoney(cl.UnitPrice.Mul(decimal.NewFromInt32(cl.Quantity)))
		line, err := store.CreateInvoiceLine(ctx, database.CreateInvoiceLineParams{
			InvoiceID:    invoice.ID,
			ProductName:  cl.ProductName,
			Quantity:     cl.Quantity,
			UnitPrice:    decimalToNumeric(cl.UnitPrice),
			LineSubtotal: decimalToNumeric(lineSubtotal),
		})
		if err != nil {
			return nil, fmt.Errorf("create invoice line: %w", err)
		}
		lines = append(lines, line)
	}

	if !InvoiceConsistent(invoice, lines) {
		return nil, fmt.Errorf("invoice %s failed consistency check", invoice.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &InvoiceResult{Invoice: invoice, Lines: lines}, nil
}

// isUniqueViolation checks for a pg unique constraint violation (23505) on
// the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}
