package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownBadge   = errors.New("unknown badge")
	ErrStore          = errors.New("store failure")
)
