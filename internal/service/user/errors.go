package user

import "errors"

var (
	ErrUserNotFound       = errors.New("User not found")
	ErrEmailAlreadyExists = errors.New("Email Already In Use")
	ErrFieldsRequired     = errors.New("name, email and phone are required")
	ErrInvalidEmail       = errors.New("Invalid Email")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrInvalidRole        = errors.New("role must be one of dentist, labmanager, practicemanager, practicenurse, labtechnician")
	ErrInvalidStatus      = errors.New("status must be active or inactive")
	ErrClinicRequired     = errors.New("clinic is required for practice roles")
	ErrLabRequired        = errors.New("lab is required for lab roles")
	ErrClinicNotFound     = errors.New("Clinic not found")
	ErrLabNotFound        = errors.New("Lab not found")
	ErrForbidden          = errors.New("you are not allowed to manage this user")
	ErrAccountInactive    = errors.New("Your account is inactive. Contact an administrator")
	ErrImagesRequired     = errors.New("at least one image is required")
	ErrInvalidYear        = errors.New("year must be between 2000 and 9999")
)
