package domain

import "errors"

var (
	ErrAuthRequired = errors.New("authentication required")
	ErrEmptyContent = errors.New("message content is required")
	ErrNoRecipient  = errors.New("recipient is required")
	ErrPersistence  = errors.New("failed to persist message")
)
