package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrUnknownBill             = errors.New("unknown bill")
	ErrItemNotInBill           = errors.New("item not in bill")
	ErrExcessiveReturnQuantity = errors.New("return quantity exceeds sold quantity")
	ErrMissingReason           = errors.New("return reason is required")
	ErrInsufficientProfit      = errors.New("insufficient profit")
	ErrInvalidInput            = errors.New("invalid input")
	ErrStockConflict           = errors.New("stock changed during commit")
	ErrDuplicateRequest        = errors.New("duplicate request in flight")
)

// LineError names the cart line that failed validation. It unwraps to the
// sentinel describing the failure.
type LineError struct {
	Line      int
	ProductID string
	Requested int
	Available int
	Err       error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%s): %v: requested %d, available %d", e.Line+1, e.ProductID, e.Err, e.Requested, e.Available)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a caller input failure rather than a
// conflict or infrastructure fault.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyCart, ErrInsufficientStock, ErrUnknownBill, ErrItemNotInBill,
		ErrExcessiveReturnQuantity, ErrMissingReason, ErrInsufficientProfit, ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
