package pasetotoken

import "fmt"

// ConfigError reports unusable key material or manager settings.
type ConfigError struct{ Reason string }

func (e ConfigError) Error() string { return "paseto: " + e.Reason }

// ErrInvalidToken wraps every parse or claim failure of Verify.
type ErrInvalidToken struct{ Err error }

func (e ErrInvalidToken) Error() string { return fmt.Sprintf("invalid token: %v", e.Err) }
func (e ErrInvalidToken) Unwrap() error { return e.Err }
