package clinic

import "errors"

var (
	ErrClinicNotFound    = errors.New("Clinic not found")
	ErrClinicEmailExists = errors.New("Clinic with this email already exists")
	ErrLabNotFound       = errors.New("Lab not found")
	ErrLabEmailExists    = errors.New("Lab with this email already exists")

	ErrFieldsRequired = errors.New("name and email are required")
	ErrInvalidEmail   = errors.New("Invalid Email")
	ErrInvalidPhone   = errors.New("invalid phone number")
	ErrInvalidStatus  = errors.New("status must be active or inactive")
)
