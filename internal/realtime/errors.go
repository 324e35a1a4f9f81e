package realtime

import "errors"

var (
	ErrSlowConsumer = errors.New("socket send queue is full")
	ErrUserRequired = errors.New("User ID is required")
	ErrUserNotFound = errors.New("User not found")
)
