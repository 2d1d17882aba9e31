package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending          = "PENDING"
	OrderStatusAwaitingApproval = "AWAITING_APPROVAL"
	OrderStatusInKitchen        = "IN_KITCHEN"
	OrderStatusOutForDelivery   = "OUT_FOR_DELIVERY"
	OrderStatusDelivered        = "DELIVERED"
	OrderStatusRejected         = "REJECTED"
)

const (
	InvoiceStatusPaid = "PAID"
	InvoiceStatusVoid = "VOID"
)

const (
	MovementKindOrder        = "ORDER"
	MovementKindDirectSale   = "DIRECT_SALE"
	MovementKindInitialStock = "INITIAL_STOCK"
)

// ── Group B: Roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin    = "ADMIN"
	UserRoleStaff    = "STAFF"
	UserRoleCustomer = "CUSTOMER"
)

// ── Group C: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)

// Audit action labels.
const (
	AuditOrderPlaced        = "order.placed"
	AuditOrderStatusChanged = "order.status_changed"
	AuditOrderRejected      = "order.rejected"
	AuditInvoiceGenerated   = "invoice.generated"
	AuditInvoiceDirect      = "invoice.direct"
	AuditProductCreated     = "product.created"
)
