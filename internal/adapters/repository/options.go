package repository

import "time"

type options struct {
	maxConns    int32
	busyTimeout time.Duration
}

func defaultOptions() options {
	return options{maxConns: 10, busyTimeout: 5 * time.Second}
}

// Option applies a configuration option to a SQL-backed store.
type Option func(*options)

// WithMaxConns caps the Postgres connection pool.
func WithMaxConns(n int32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}
