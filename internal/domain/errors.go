package domain

import "errors"

var (
	ErrInvalidProduct    = errors.New("invalid product")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInUse             = errors.New("product has live reservations")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrCartExpired       = errors.New("cart expired, please try again")
	// ErrStockConflict is returned when the stored stock kept changing under
	// a compare-and-set and the retry budget ran out.
	ErrStockConflict = errors.New("stock changed concurrently")
)
