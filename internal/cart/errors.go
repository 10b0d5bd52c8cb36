package cart

import "errors"

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrCartCompleted   = errors.New("cart is not open")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)
