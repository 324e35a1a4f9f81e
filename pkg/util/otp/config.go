package otp

import (
	"time"

	"github.com/Alijeyrad/dentlab_backend/config"
)

// Config drives code generation and the verification limits applied by
// Store.
type Config struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
	Lockout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Length:      DefaultLength,
		TTL:         10 * time.Minute,
		MaxAttempts: 5,
		Lockout:     15 * time.Minute,
	}
}

func (c Config) Validate() error {
	if c.Length < MinLength || c.Length > MaxLength {
		return ErrInvalidLength
	}
	return nil
}

func FromCentralConfig(o config.OTPConfig, a config.AuthenticationConfig) Config {
	out := DefaultConfig()
	if o.DefaultLength > 0 {
		out.Length = o.DefaultLength
	}
	if a.OTPTTLMinutes > 0 {
		out.TTL = time.Duration(a.OTPTTLMinutes) * time.Minute
	}
	if a.OTPMaxAttempts > 0 {
		out.MaxAttempts = a.OTPMaxAttempts
	}
	if a.OTPLockoutMinutes > 0 {
		out.Lockout = time.Duration(a.OTPLockoutMinutes) * time.Minute
	}
	return out
}
