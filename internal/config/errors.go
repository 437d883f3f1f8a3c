package config

import "errors"

// ErrInvalidConfig wraps every validation failure; the narrower kinds below
// are wrapped alongside it.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrInvalidTimezone marks a timezone that is not a loadable IANA zone.
	ErrInvalidTimezone = errors.New("unknown timezone")
	// ErrInvalidProxy marks a trusted proxy entry that is not an IP address.
	ErrInvalidProxy = errors.New("trusted proxy is not an ip address")
)
