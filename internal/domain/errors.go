package domain

import "errors"

// Error kinds recognized at the request boundary. Repositories and use cases
// wrap these so delivery can map them to HTTP statuses with errors.Is.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidCategory   = errors.New("category does not exist or is inactive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartNotFound      = errors.New("cart not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid bill status transition")
	ErrForbidden         = errors.New("operation not permitted for this user")
	ErrUnauthorized      = errors.New("authentication required")
	ErrValidation        = errors.New("invalid input")
	ErrDuplicate         = errors.New("resource already exists")
)
