package notification

import "errors"

var (
	ErrNotFound     = errors.New("Notification not found")
	ErrInvalidInput = errors.New("title and receiver are required")
)
