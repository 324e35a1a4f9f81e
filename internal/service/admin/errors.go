package admin

import "errors"

var (
	ErrNotFound       = errors.New("Admin not found")
	ErrEmailInUse     = errors.New("Email Already In Use")
	ErrInvalidEmail   = errors.New("Invalid Email")
	ErrInvalidPhone   = errors.New("invalid phone number")
	ErrInvalidRole    = errors.New("role must be admin or superadmin")
	ErrForbidden      = errors.New("Only Super Admin Can Perform This Action")
	ErrImagesRequired = errors.New("at least one image is required")
)
