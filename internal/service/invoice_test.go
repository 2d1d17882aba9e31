package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sazon-pos/api/internal/database"
	"github.com/sazon-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =====================
// ComputeInvoice
// =====================

func TestComputeInvoice_BasicTax(t *testing.T) {
	draft, err := ComputeInvoice([]CalcLine{
		{ProductName: "Menu del dia", Quantity: 1, UnitPrice: money("100.00")},
	}, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !draft.Subtotal.Equal(money("100.00")) {
		t.Errorf("subtotal = %s, want 100.00", draft.Subtotal)
	}
	if !draft.Tax.Equal(money("15.00")) {
		t.Errorf("tax = %s, want 15.00", draft.Tax)
	}
	if !draft.Total.Equal(money("115.00")) {
		t.Errorf("total = %s, want 115.00", draft.Total)
	}
}

func TestComputeInvoice_LongDecimalsRound(t *testing.T) {
	draft, err := ComputeInvoice([]CalcLine{
		{Quantity: 1, UnitPrice: money("10.555")},
	}, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !draft.Subtotal.Equal(money("10.56")) {
		t.Errorf("subtotal = %s, want 10.56", draft.Subtotal)
	}
}

func TestComputeInvoice_MultiLineSum(t *testing.T) {
	draft, err := ComputeInvoice([]CalcLine{
		{Quantity: 2, UnitPrice: money("10.00")},
		{Quantity: 1, UnitPrice: money("5.50")},
	}, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !draft.Subtotal.Equal(money("25.50")) {
		t.Errorf("subtotal = %s, want 25.50", draft.Subtotal)
	}
	// 25.50 * 0.15 = 3.825, banker's rounding gives 3.82.
	if !draft.Tax.Equal(money("3.82")) {
		t.Errorf("tax = %s, want 3.82", draft.Tax)
	}
	if !draft.Total.Equal(money("29.32")) {
		t.Errorf("total = %s, want 29.32", draft.Total)
	}
}

func TestComputeInvoice_DiscountClampsToZero(t *testing.T) {
	// 10.00 + 1.50 tax = 11.50; a 20.00 discount must not go negative.
	draft, err := ComputeInvoice([]CalcLine{
		{Quantity: 1, UnitPrice: money("10.00")},
	}, money("20.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !draft.Total.Equal(decimal.Zero) {
		t.Errorf("total = %s, want 0", draft.Total)
	}
}

func TestComputeInvoice_ExactDiscount(t *testing.T) {
	draft, err := ComputeInvoice([]CalcLine{
		{Quantity: 1, UnitPrice: money("10.00")},
	}, money("11.50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !draft.Total.Equal(decimal.Zero) {
		t.Errorf("total = %s, want exactly 0", draft.Total)
	}
}

func TestComputeInvoice_FreeProduct(t *testing.T) {
	draft, err := ComputeInvoice([]CalcLine{
		{ProductName: "Promo", Quantity: 3, UnitPrice: decimal.Zero},
	}, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !draft.Subtotal.IsZero() || !draft.Tax.IsZero() || !draft.Total.IsZero() {
		t.Errorf("free product should produce all-zero draft, got %+v", draft)
	}
}

func TestComputeInvoice_EmptyLines(t *testing.T) {
	for _, lines := range [][]CalcLine{nil, {}} {
		if _, err := ComputeInvoice(lines, decimal.Zero); !errors.Is(err, ErrEmptyItems) {
			t.Fatalf("expected ErrEmptyItems, got: %v", err)
		}
	}
}

func TestComputeInvoice_NegativeDiscount(t *testing.T) {
	_, err := ComputeInvoice([]CalcLine{
		{Quantity: 1, UnitPrice: money("10.00")},
	}, money("-5.00"))
	if !errors.Is(err, ErrNegativeDiscount) {
		t.Fatalf("expected ErrNegativeDiscount, got: %v", err)
	}
}

// =====================
// InvoiceConsistent
// =====================

func TestInvoiceConsistent(t *testing.T) {
	inv := database.Invoice{
		Subtotal: makeNumeric("25.50"),
		Tax:      makeNumeric("3.82"),
		Total:    makeNumeric("29.32"),
	}
	lines := []database.InvoiceLine{
		{Quantity: 2, UnitPrice: makeNumeric("10.00"), LineSubtotal: makeNumeric("20.00")},
		{Quantity: 1, UnitPrice: makeNumeric("5.50"), LineSubtotal: makeNumeric("5.50")},
	}
	if !InvoiceConsistent(inv, lines) {
		t.Error("expected consistent invoice")
	}

	badLine := []database.InvoiceLine{
		{Quantity: 2, UnitPrice: makeNumeric("10.00"), LineSubtotal: makeNumeric("25.00")},
	}
	if InvoiceConsistent(inv, badLine) {
		t.Error("line subtotal mismatch should fail the check")
	}

	inv.Total = makeNumeric("35.00")
	if InvoiceConsistent(inv, lines) {
		t.Error("total drift beyond tolerance should fail the check")
	}
}

// =====================
// Invoice workflow mocks
// =====================

type mockInvoiceStore struct {
	getOrderForUpdateFn       func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrderLinesByOrderFn   func(ctx context.Context, orderID uuid.UUID) ([]database.OrderLine, error)
	getInvoiceByOrderFn       func(ctx context.Context, orderID uuid.UUID) (database.Invoice, error)
	createInvoiceFn           func(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error)
	createInvoiceLineFn       func(ctx context.Context, arg database.CreateInvoiceLineParams) (database.InvoiceLine, error)
	approveOrderFn            func(ctx context.Context, arg database.ApproveOrderParams) (database.Order, error)
	getUserByIDFn             func(ctx context.Context, id uuid.UUID) (database.User, error)
	getPaymentMethodFn        func(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error)
	getPaymentMethodByNameFn  func(ctx context.Context, name string) (database.PaymentMethod, error)
	getProductForUpdateFn     func(ctx context.Context, id uuid.UUID) (database.Product, error)
	decrementStockFn          func(ctx context.Context, arg database.DecrementStockParams) (database.Product, error)
	createInventoryMovementFn func(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error)
}

func (m *mockInvoiceStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockInvoiceStore) ListOrderLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderLine, error) {
	return m.listOrderLinesByOrderFn(ctx, orderID)
}
func (m *mockInvoiceStore) GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (database.Invoice, error) {
	return m.getInvoiceByOrderFn(ctx, orderID)
}
func (m *mockInvoiceStore) CreateInvoice(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error) {
	return m.createInvoiceFn(ctx, arg)
}
func (m *mockInvoiceStore) CreateInvoiceLine(ctx context.Context, arg database.CreateInvoiceLineParams) (database.InvoiceLine, error) {
	return m.createInvoiceLineFn(ctx, arg)
}
func (m *mockInvoiceStore) ApproveOrder(ctx context.Context, arg database.ApproveOrderParams) (database.Order, error) {
	return m.approveOrderFn(ctx, arg)
}
func (m *mockInvoiceStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	return m.getUserByIDFn(ctx, id)
}
func (m *mockInvoiceStore) GetPaymentMethod(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error) {
	return m.getPaymentMethodFn(ctx, id)
}
func (m *mockInvoiceStore) GetPaymentMethodByName(ctx context.Context, name string) (database.PaymentMethod, error) {
	return m.getPaymentMethodByNameFn(ctx, name)
}
func (m *mockInvoiceStore) GetProductForUpdate(ctx context.Context, id uuid.UUID) (database.Product, error) {
	return m.getProductForUpdateFn(ctx, id)
}
func (m *mockInvoiceStore) DecrementStock(ctx context.Context, arg database.DecrementStockParams) (database.Product, error) {
	return m.decrementStockFn(ctx, arg)
}
func (m *mockInvoiceStore) CreateInventoryMovement(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error) {
	return m.createInventoryMovementFn(ctx, arg)
}

func newTestInvoiceService(store *mockInvoiceStore) (*InvoiceService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) InvoiceStore { return store }
	return NewInvoiceService(pool, newStore), tx
}

// defaultInvoiceStore wires a PENDING two-line order belonging to customerID,
// no existing invoice, one CASH payment method and one in-stock product.
func defaultInvoiceStore(orderID, customerID, productID uuid.UUID) *mockInvoiceStore {
	cashID := uuid.New()
	return &mockInvoiceStore{
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id == orderID {
				return database.Order{
					ID:         orderID,
					CustomerID: customerID,
					Status:     enum.OrderStatusPending,
					Total:      makeNumeric("29.32"),
				}, nil
			}
			return database.Order{}, pgx.ErrNoRows
		},
		listOrderLinesByOrderFn: func(ctx context.Context, oid uuid.UUID) ([]database.OrderLine, error) {
			return []database.OrderLine{
				{OrderID: oid, ProductName: "Burger", Quantity: 2, UnitPrice: makeNumeric("10.00"), LineSubtotal: makeNumeric("20.00")},
				{OrderID: oid, ProductName: "Soda", Quantity: 1, UnitPrice: makeNumeric("5.50"), LineSubtotal: makeNumeric("5.50")},
			}, nil
		},
		getInvoiceByOrderFn: func(ctx context.Context, oid uuid.UUID) (database.Invoice, error) {
			return database.Invoice{}, pgx.ErrNoRows
		},
		createInvoiceFn: func(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error) {
			return database.Invoice{
				ID:              uuid.New(),
				OrderID:         arg.OrderID,
				CustomerID:      arg.CustomerID,
				CustomerName:    arg.CustomerName,
				TaxID:           arg.TaxID,
				Subtotal:        arg.Subtotal,
				Tax:             arg.Tax,
				Total:           arg.Total,
				Status:          arg.Status,
				PaymentMethodID: arg.PaymentMethodID,
				PaymentNote:     arg.PaymentNote,
			}, nil
		},
		createInvoiceLineFn: func(ctx context.Context, arg database.CreateInvoiceLineParams) (database.InvoiceLine, error) {
			return database.InvoiceLine{
				ID:           uuid.New(),
				InvoiceID:    arg.InvoiceID,
				ProductName:  arg.ProductName,
				Quantity:     arg.Quantity,
				UnitPrice:    arg.UnitPrice,
				LineSubtotal: arg.LineSubtotal,
			}, nil
		},
		approveOrderFn: func(ctx context.Context, arg database.ApproveOrderParams) (database.Order, error) {
			return database.Order{ID: arg.ID, Status: arg.Status, ApprovedBy: arg.ApprovedBy}, nil
		},
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			if id == customerID {
				return database.User{
					ID:       customerID,
					FullName: "Maria Lopez",
					TaxID:    pgtype.Text{String: "1712345678", Valid: true},
				}, nil
			}
			return database.User{}, pgx.ErrNoRows
		},
		getPaymentMethodFn: func(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error) {
			if id == cashID {
				return database.PaymentMethod{ID: cashID, Name: enum.PaymentMethodCash}, nil
			}
			return database.PaymentMethod{}, pgx.ErrNoRows
		},
		getPaymentMethodByNameFn: func(ctx context.Context, name string) (database.PaymentMethod, error) {
			if name == enum.PaymentMethodCash {
				return database.PaymentMethod{ID: cashID, Name: enum.PaymentMethodCash}, nil
			}
			return database.PaymentMethod{}, pgx.ErrNoRows
		},
		getProductForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			if id == productID {
				return database.Product{ID: productID, Name: "Empanada", UnitPrice: makeNumeric("3.50"), Stock: 20}, nil
			}
			return database.Product{}, pgx.ErrNoRows
		},
		decrementStockFn: func(ctx context.Context, arg database.DecrementStockParams) (database.Product, error) {
			return database.Product{ID: arg.ID, Stock: 20 - arg.Quantity}, nil
		},
		createInventoryMovementFn: func(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error) {
			return database.InventoryMovement{
				ID:        uuid.New(),
				ProductID: arg.ProductID,
				Quantity:  arg.Quantity,
				UnitPrice: arg.UnitPrice,
				Kind:      arg.Kind,
			}, nil
		},
	}
}

// =====================
// GenerateInvoiceForApprovedOrder
// =====================

func TestGenerateInvoice_HappyPath(t *testing.T) {
	orderID, customerID := uuid.New(), uuid.New()
	store := defaultInvoiceStore(orderID, customerID, uuid.New())

	var approved *database.ApproveOrderParams
	base := store.approveOrderFn
	store.approveOrderFn = func(ctx context.Context, arg database.ApproveOrderParams) (database.Order, error) {
		approved = &arg
		return base(ctx, arg)
	}

	svc, tx := newTestInvoiceService(store)

	result, err := svc.GenerateInvoiceForApprovedOrder(context.Background(), orderID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inv := result.Invoice
	if !inv.OrderID.Valid || inv.OrderID.Bytes != orderID {
		t.Error("invoice must reference the order it was generated from")
	}
	if inv.Status != enum.InvoiceStatusPaid {
		t.Errorf("status = %s, want %s", inv.Status, enum.InvoiceStatusPaid)
	}
	if !numericEquals(inv.Subtotal, "25.50") || !numericEquals(inv.Tax, "3.82") || !numericEquals(inv.Total, "29.32") {
		t.Errorf("totals = %s/%s/%s, want 25.50/3.82/29.32",
			numericToDecimal(inv.Subtotal), numericToDecimal(inv.Tax), numericToDecimal(inv.Total))
	}
	if inv.CustomerName != "Maria Lopez" || inv.TaxID != "1712345678" {
		t.Errorf("customer snapshot = %q/%q", inv.CustomerName, inv.TaxID)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected 2 invoice lines, got %d", len(result.Lines))
	}
	if result.Lines[0].ProductName != "Burger" {
		t.Errorf("lines must copy order line snapshots, got %q", result.Lines[0].ProductName)
	}

	if approved == nil {
		t.Fatal("order was never advanced")
	}
	if approved.Status != enum.OrderStatusInKitchen || approved.FromStatus != enum.OrderStatusPending {
		t.Errorf("approve params = %+v, want PENDING -> IN_KITCHEN", approved)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestGenerateInvoice_OrderNotFound(t *testing.T) {
	store := defaultInvoiceStore(uuid.New(), uuid.New(), uuid.New())
	svc, _ := newTestInvoiceService(store)

	_, err := svc.GenerateInvoiceForApprovedOrder(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestGenerateInvoice_AlreadyInvoiced(t *testing.T) {
	orderID := uuid.New()
	store := defaultInvoiceStore(orderID, uuid.New(), uuid.New())
	store.getInvoiceByOrderFn = func(ctx context.Context, oid uuid.UUID) (database.Invoice, error) {
		return database.Invoice{ID: uuid.New(), OrderID: pgtype.UUID{Bytes: oid, Valid: true}}, nil
	}
	created := false
	store.createInvoiceFn = func(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error) {
		created = true
		return database.Invoice{}, nil
	}
	svc, tx := newTestInvoiceService(store)

	_, err := svc.GenerateInvoiceForApprovedOrder(context.Background(), orderID, uuid.New())
	if !errors.Is(err, ErrAlreadyInvoiced) {
		t.Fatalf("expected ErrAlreadyInvoiced, got: %v", err)
	}
	if created {
		t.Error("no second invoice may be created for an invoiced order")
	}
	if tx.committed {
		t.Error("transaction must not commit on a duplicate invoice attempt")
	}
}

func TestGenerateInvoice_UniqueIndexBackstop(t *testing.T) {
	// The pre-check raced: another transaction invoiced the order between
	// our check and our insert, and the partial unique index fired.
	orderID := uuid.New()
	store := defaultInvoiceStore(orderID, uuid.New(), uuid.New())
	store.createInvoiceFn = func(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error) {
		return database.Invoice{}, &pgconn.PgError{Code: "23505", ConstraintName: "invoices_order_id_key"}
	}
	svc, _ := newTestInvoiceService(store)

	_, err := svc.GenerateInvoiceForApprovedOrder(context.Background(), orderID, uuid.New())
	if !errors.Is(err, ErrAlreadyInvoiced) {
		t.Fatalf("expected ErrAlreadyInvoiced, got: %v", err)
	}
}

func TestGenerateInvoice_WrongStatus(t *testing.T) {
	for _, status := range []string{enum.OrderStatusOutForDelivery, enum.OrderStatusDelivered, enum.OrderStatusRejected} {
		orderID := uuid.New()
		store := defaultInvoiceStore(orderID, uuid.New(), uuid.New())
		store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: status}, nil
		}
		svc, _ := newTestInvoiceService(store)

		_, err := svc.GenerateInvoiceForApprovedOrder(context.Background(), orderID, uuid.New())
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("status %s: expected ErrInvalidTransition, got: %v", status, err)
		}
	}
}

func TestGenerateInvoice_ApprovalLosesRace(t *testing.T) {
	orderID := uuid.New()
	store := defaultInvoiceStore(orderID, uuid.New(), uuid.New())
	store.approveOrderFn = func(ctx context.Context, arg database.ApproveOrderParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}
	svc, _ := newTestInvoiceService(store)

	_, err := svc.GenerateInvoiceForApprovedOrder(context.Background(), orderID, uuid.New())
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got: %v", err)
	}
}

func TestGenerateInvoice_AnonymousCustomerDefaults(t *testing.T) {
	orderID, customerID := uuid.New(), uuid.New()
	store := defaultInvoiceStore(orderID, customerID, uuid.New())
	store.getUserByIDFn = func(ctx context.Context, id uuid.UUID) (database.User, error) {
		return database.User{ID: customerID, FullName: ""}, nil
	}
	svc, _ := newTestInvoiceService(store)

	result, err := svc.GenerateInvoiceForApprovedOrder(context.Background(), orderID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Invoice.CustomerName != DefaultCustomerName {
		t.Errorf("customer name = %q, want %q", result.Invoice.CustomerName, DefaultCustomerName)
	}
	if result.Invoice.TaxID != DefaultTaxID {
		t.Errorf("tax id = %q, want %q", result.Invoice.TaxID, DefaultTaxID)
	}
}

// =====================
// CreateDirectInvoice
// =====================

func TestCreateDirectInvoice_HappyPath(t *testing.T) {
	productID := uuid.New()
	store := defaultInvoiceStore(uuid.New(), uuid.New(), productID)

	var movements []database.CreateInventoryMovementParams
	base := store.createInventoryMovementFn
	store.createInventoryMovementFn = func(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error) {
		movements = append(movements, arg)
		return base(ctx, arg)
	}

	svc, tx := newTestInvoiceService(store)

	result, err := svc.CreateDirectInvoice(context.Background(), DirectInvoiceRequest{
		CustomerID: uuid.New(),
		Items:      []DirectSaleItem{{ProductID: productID.String(), Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inv := result.Invoice
	if inv.OrderID.Valid {
		t.Error("direct invoices must not reference an order")
	}
	if inv.Status != enum.InvoiceStatusPaid {
		t.Errorf("status = %s, want %s", inv.Status, enum.InvoiceStatusPaid)
	}
	// 4 * 3.50 = 14.00, tax 2.10, total 16.10.
	if !numericEquals(inv.Subtotal, "14.00") || !numericEquals(inv.Tax, "2.10") || !numericEquals(inv.Total, "16.10") {
		t.Errorf("totals = %s/%s/%s, want 14.00/2.10/16.10",
			numericToDecimal(inv.Subtotal), numericToDecimal(inv.Tax), numericToDecimal(inv.Total))
	}
	if inv.CustomerName != DefaultCustomerName || inv.TaxID != DefaultTaxID {
		t.Errorf("defaults not applied: %q/%q", inv.CustomerName, inv.TaxID)
	}

	if len(movements) != 1 {
		t.Fatalf("expected 1 inventory movement, got %d", len(movements))
	}
	if movements[0].Kind != enum.MovementKindDirectSale || movements[0].Quantity != 4 {
		t.Errorf("movement = %+v, want kind %s qty 4", movements[0], enum.MovementKindDirectSale)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestCreateDirectInvoice_EmptyItems(t *testing.T) {
	svc, _ := newTestInvoiceService(defaultInvoiceStore(uuid.New(), uuid.New(), uuid.New()))

	_, err := svc.CreateDirectInvoice(context.Background(), DirectInvoiceRequest{CustomerID: uuid.New()})
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got: %v", err)
	}
}

func TestCreateDirectInvoice_InsufficientStock(t *testing.T) {
	productID := uuid.New()
	store := defaultInvoiceStore(uuid.New(), uuid.New(), productID)
	store.getProductForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Product, error) {
		return database.Product{ID: productID, Name: "Empanada", UnitPrice: makeNumeric("3.50"), Stock: 1}, nil
	}
	svc, tx := newTestInvoiceService(store)

	_, err := svc.CreateDirectInvoice(context.Background(), DirectInvoiceRequest{
		CustomerID: uuid.New(),
		Items:      []DirectSaleItem{{ProductID: productID.String(), Quantity: 2}},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction must not commit when stock is insufficient")
	}
}

func TestCreateDirectInvoice_UnknownPaymentMethod(t *testing.T) {
	productID := uuid.New()
	svc, _ := newTestInvoiceService(defaultInvoiceStore(uuid.New(), uuid.New(), productID))

	_, err := svc.CreateDirectInvoice(context.Background(), DirectInvoiceRequest{
		CustomerID:      uuid.New(),
		Items:           []DirectSaleItem{{ProductID: productID.String(), Quantity: 1}},
		PaymentMethodID: uuid.New().String(),
	})
	if !errors.Is(err, ErrPaymentMethod) {
		t.Fatalf("expected ErrPaymentMethod, got: %v", err)
	}
}

func TestCreateDirectInvoice_ExplicitCustomerData(t *testing.T) {
	productID := uuid.New()
	svc, _ := newTestInvoiceService(defaultInvoiceStore(uuid.New(), uuid.New(), productID))

	result, err := svc.CreateDirectInvoice(context.Background(), DirectInvoiceRequest{
		CustomerID:   uuid.New(),
		Items:        []DirectSaleItem{{ProductID: productID.String(), Quantity: 1}},
		CustomerName: "Carlos Vera",
		TaxID:        "0912345678001",
		PaymentNote:  "paid at counter",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Invoice.CustomerName != "Carlos Vera" || result.Invoice.TaxID != "0912345678001" {
		t.Errorf("customer data = %q/%q", result.Invoice.CustomerName, result.Invoice.TaxID)
	}
	if !result.Invoice.PaymentNote.Valid || result.Invoice.PaymentNote.String != "paid at counter" {
		t.Errorf("payment note = %+v", result.Invoice.PaymentNote)
	}
}
