package email

import (
	"errors"
	"fmt"
)

var (
	// ErrDisabled is returned by every send while email is turned off.
	ErrDisabled = errors.New("email: disabled")
	// ErrMalformed wraps problems with a message or the client settings.
	ErrMalformed = errors.New("email: malformed")
)

func malformed(what string) error { return fmt.Errorf("%w: %s", ErrMalformed, what) }

// DeliveryError is an SMTP failure after the message was built.
type DeliveryError struct {
	Host string
	Err  error
}

func (e *DeliveryError) Error() string { return fmt.Sprintf("email: deliver via %s: %v", e.Host, e.Err) }
func (e *DeliveryError) Unwrap() error { return e.Err }
