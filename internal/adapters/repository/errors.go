package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("member not found")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrInvalidMember = errors.New("invalid member")
	ErrClosed        = errors.New("store closed")
)
