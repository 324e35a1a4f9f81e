package product

import "errors"

var (
	ErrNotFound      = errors.New("Product not found")
	ErrNameRequired  = errors.New("name is required")
	ErrInvalidPrice  = errors.New("price must be zero or more")
	ErrInvalidStock  = errors.New("stock must be zero or more")
	ErrInvalidTier   = errors.New("productTier must be Standard or Premium")
	ErrSearchMissing = errors.New("Search query required")
)
