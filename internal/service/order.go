package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sazon-pos/api/internal/database"
	"github.com/sazon-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// TxBeginner abstracts pgxpool.Pool for transaction control.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order workflow.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (database.Product, error)
	DecrementStock(ctx context.Context, arg database.DecrementStockParams) (database.Product, error)
	CreateInventoryMovement(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderLine(ctx context.Context, arg database.CreateOrderLineParams) (database.OrderLine, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (database.Invoice, error)
	VoidInvoice(ctx context.Context, id uuid.UUID) (database.Invoice, error)
	GetPaymentMethod(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService owns order intake and the order state machine.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// CartItem is a single requested item when placing an order.
type CartItem struct {
	ProductID string
	Quantity  int32
}

// PlaceOrderRequest is the validated input for order intake.
type PlaceOrderRequest struct {
	CustomerID       uuid.UUID
	Items            []CartItem
	PaymentMethodID  string
	PaymentReference string
}

// OrderResult is a persisted order with its lines.
type OrderResult struct {
	Order database.Order
	Lines []database.OrderLine
}

// PlaceOrder creates a PENDING order, decrementing stock and recording one
// inventory movement per line in the same transaction. Name and unit price
// are snapshotted onto each line so later catalog edits never change what
// the customer agreed to pay.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
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

	// The payment method, if declared up front, must exist; it is applied
	// to the invoice later, at approval time.
	if req.PaymentMethodID != "" {
		pmID, err := uuid.Parse(req.PaymentMethodID)
		if err != nil {
			return nil, ErrPaymentMethod
		}
		if _, err := store.GetPaymentMethod(ctx, pmID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrPaymentMethod
			}
			return nil, fmt.Errorf("get payment method: %w", err)
		}
	}

	type snapshot struct {
		productID uuid.UUID
		name      string
		quantity  int32
		unitPrice decimal.Decimal
	}
	snapshots := make([]snapshot, len(pending))
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

		// Guarded decrement; a concurrent order can still win the race
		// between the read above and this update.
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
			Kind:      enum.MovementKindOrder,
		}); err != nil {
			return nil, fmt.Errorf("record inventory movement: %w", err)
		}

		snapshots[i] = snapshot{
			productID: p.productID,
			name:      product.Name,
			quantity:  p.quantity,
			unitPrice: numericToDecimal(product.UnitPrice),
		}
	}

	calcLines := make([]CalcLine, len(snapshots))
	for i, sn := range snapshots {
		calcLines[i] = CalcLine{ProductName: sn.name, Quantity: sn.quantity, UnitPrice: sn.unitPrice}
	}
	draft, err := ComputeInvoice(calcLines, decimal.Zero)
	if err != nil {
		return nil, err
	}

	var paymentReference pgtype.Text
	if req.PaymentReference != "" {
		paymentReference = pgtype.Text{String: req.PaymentReference, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CustomerID:       req.CustomerID,
		Status:           enum.OrderStatusPending,
		Total:            decimalToNumeric(draft.Total),
		PaymentReference: paymentReference,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	lines := make([]database.OrderLine, 0, len(snapshots))
	for _, sn := range snapshots {
		lineSubtotal := roundMoney(sn.unitPrice.Mul(decimal.NewFromInt32(sn.quantity)))
		line, err := store.CreateOrderLine(ctx, database.CreateOrderLineParams{
			OrderID:      order.ID,
			ProductID:    sn.productID,
			ProductName:  sn.name,
			Quantity:     sn.quantity,
			UnitPrice:    decimalToNumeric(sn.unitPrice),
			LineSubtotal: decimalToNumeric(lineSubtotal),
		})
		if err != nil {
			return nil, fmt.Errorf("create order line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Lines: lines}, nil
}

// allowedTransitions is the order lifecycle. REJECTED is reachable from any
// non-terminal status but only through RejectOrder, and IN_KITCHEN only
// through invoice generation; TransitionStatus refuses both targets.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:          {enum.OrderStatusAwaitingApproval, enum.OrderStatusInKitchen, enum.OrderStatusRejected},
	enum.OrderStatusAwaitingApproval: {enum.OrderStatusInKitchen, enum.OrderStatusRejected},
	enum.OrderStatusInKitchen:        {enum.OrderStatusOutForDelivery, enum.OrderStatusRejected},
	enum.OrderStatusOutForDelivery:   {enum.OrderStatusDelivered, enum.OrderStatusRejected},
	enum.OrderStatusDelivered:        {},
	enum.OrderStatusRejected:         {},
}

func canTransition(from, to string) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// TransitionStatus moves an order along the lifecycle with a compare-and-set
// on the current status. IN_KITCHEN and REJECTED are refused here: the
// former is a side effect of invoice generation, the latter of RejectOrder.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID uuid.UUID, target string) (*database.Order, error) {
	if !ValidStatus(target) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	if target == enum.OrderStatusInKitchen || target == enum.OrderStatusRejected {
		return nil, fmt.Errorf("%w: %s", ErrApprovalRequired, target)
	}

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

	if !canTransition(order.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     target,
		FromStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &updated, nil
}

// RejectOrder moves any non-terminal order to REJECTED. If the order was
// already invoiced the invoice is voided in the same transaction so the
// books never show revenue for a cancelled order.
func (s *OrderService) RejectOrder(ctx context.Context, orderID uuid.UUID) (*database.Order, error) {
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

	if !canTransition(order.Status, enum.OrderStatusRejected) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, enum.OrderStatusRejected)
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     enum.OrderStatusRejected,
		FromStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	invoice, err := store.GetInvoiceByOrder(ctx, orderID)
	switch {
	case err == nil:
		if _, err := store.VoidInvoice(ctx, invoice.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("void invoice: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		// Not yet invoiced, nothing to void.
	default:
		return nil, fmt.Errorf("check invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &updated, nil
}
