package auth

import "errors"

var (
	ErrFieldsRequired     = errors.New("Email and password are required")
	ErrEmailRequired      = errors.New("Email is required")
	ErrInvalidEmail       = errors.New("Invalid Email")
	ErrEmailInUse         = errors.New("Email Already In Use")
	ErrInvalidRole        = errors.New("role must be admin or superadmin")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrNoAccount          = errors.New("You don't have an account")
	ErrAccountInactive    = errors.New("Your account is inactive. Contact an administrator")
	ErrAccountNotFound    = errors.New("User not found")
	ErrOTPRequired        = errors.New("OTP is required")
	ErrNoActiveOTP        = errors.New("No active OTP found")
	ErrInvalidOTP         = errors.New("Invalid OTP")
	ErrOTPLocked          = errors.New("Too many incorrect codes. Try again later")
	ErrResetTokenRequired = errors.New("Reset token required")
	ErrPasswordMismatch   = errors.New("Passwords do not match")
	ErrPasswordTooShort   = errors.New("Password must be at least 6 characters")
	ErrInvalidToken       = errors.New("Invalid or expired token")
	ErrSessionNotFound    = errors.New("Refresh token is expired or used")
	ErrWrongPassword      = errors.New("Current password is incorrect")
	ErrCannotDeleteSelf   = errors.New("You cannot delete your own account")
	ErrMailFailed         = errors.New("Failed to send OTP. Please try again.")
)
