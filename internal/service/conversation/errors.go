package conversation

import "errors"

var (
	ErrNotFound         = errors.New("Conversation not found")
	ErrNotParticipant   = errors.New("Not a participant in this conversation")
	ErrMessageNotFound  = errors.New("Message not found")
	ErrReceiverNotFound = errors.New("Receiver not found")
	ErrReceiverRequired = errors.New("Receiver ID is required")
	ErrSelfMessage      = errors.New("Cannot send a message to yourself")
	ErrEmptyMessage     = errors.New("Message text or media is required")
	ErrNotSender        = errors.New("Only the sender can change this message")
)
