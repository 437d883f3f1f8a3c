package ranking

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownScope = errors.New("unknown ranking scope")
)
