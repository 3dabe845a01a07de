package service

import (
	"errors"
)

// User errors: the caller can correct the input and try again.
var (
	ErrProductNotFound       = errors.New("product not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrNegativeStockResult   = errors.New("adjustment would drive stock below zero")
	ErrSaleNotFound          = errors.New("sale not found")
	ErrAlreadyRefunded       = errors.New("sale is already fully refunded")
	ErrRefundExceedsOriginal = errors.New("refund exceeds remaining refundable amount")
	ErrInvalidLineSelection  = errors.New("invalid refund line selection")
	ErrRefundReasonRequired  = errors.New("refund reason is required")
	ErrRefundNotAllowed      = errors.New("sale cannot be refunded in its current status")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInvalidPayment        = errors.New("invalid payment")
	ErrInvalidDiscount       = errors.New("invalid discount")
	ErrDeliveryRequired      = errors.New("delivery region is required for online orders")
	ErrSKUExists             = errors.New("SKU already exists")
	ErrValidation            = errors.New("validation failed")
)

var userErrors = []error{
	ErrProductNotFound,
	ErrInsufficientStock,
	ErrEmptyCart,
	ErrInvalidQuantity,
	ErrNegativeStockResult,
	ErrSaleNotFound,
	ErrAlreadyRefunded,
	ErrRefundExceedsOriginal,
	ErrInvalidLineSelection,
	ErrRefundReasonRequired,
	ErrRefundNotAllowed,
	ErrInvalidTransition,
	ErrInvalidPayment,
	ErrInvalidDiscount,
	ErrDeliveryRequired,
	ErrSKUExists,
	ErrValidation,
}

// IsUserError reports whether err belongs to the correctable class. Anything
// else is a system failure and is never shown to the caller verbatim.
func IsUserError(err error) bool {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
