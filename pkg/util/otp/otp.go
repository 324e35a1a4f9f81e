// Package otp issues short numeric codes and checks them against hashes
// kept in Redis.
package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrInvalidLength = errors.New("OTP length must be between 4 and 10")
	ErrMismatch      = errors.New("OTP does not match")
)

const (
	DefaultLength = 6
	MinLength     = 4
	MaxLength     = 10
)

// Generate returns a zero-padded numeric code.
func Generate(length int) (string, error) {
	if length < MinLength || length > MaxLength {
		return "", ErrInvalidLength
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// Hash binds code to subject so equal codes for two accounts differ.
func Hash(subject, code string) string {
	mac := hmac.New(sha256.New, []byte(strings.ToLower(strings.TrimSpace(subject))))
	mac.Write([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(mac.Sum(nil))
}

func Verify(hash, subject, code string) error {
	if !hmac.Equal([]byte(hash), []byte(Hash(subject, code))) {
		return ErrMismatch
	}
	return nil
}

// Token returns 2*n hex characters, used for single-use reset tokens.
func Token(n int) (string, error) {
	if n < 1 {
		return "", errors.New("byte length must be at least 1")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
