package service

import "errors"

// Errors returned by the order and invoicing services. Handlers map these to
// HTTP status codes with errors.Is.
var (
	ErrEmptyItems        = errors.New("items are required")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidProductID  = errors.New("invalid product_id")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNegativeDiscount  = errors.New("discount cannot be negative")
	ErrOrderNotFound     = errors.New("order not found")
	ErrAlreadyInvoiced   = errors.New("order has already been invoiced")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrApprovalRequired  = errors.New("transition requires order approval")
	ErrStatusConflict    = errors.New("order status changed, please retry")
	ErrPaymentMethod     = errors.New("payment method not found")
)
