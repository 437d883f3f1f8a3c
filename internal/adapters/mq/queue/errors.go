package queue

import "errors"

// ErrFull is returned by callers that need an error when Enqueue rejects a job.
var ErrFull = errors.New("award queue full")
