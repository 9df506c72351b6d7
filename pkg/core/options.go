package core

import (
	"time"

	"go.uber.org/zap"
)

// managerOptions holds the configuration for a Manager.
type managerOptions struct {
	logger      *zap.Logger
	clock       func() time.Time
	normalizer  Normalizer
	onSaveError func(error)
	eventBuffer int
	saveTimeout time.Duration
}

// ManagerOption defines a functional option for configuring a Manager.
type ManagerOption func(*managerOptions)

func defaultManagerOptions() *managerOptions {
	return &managerOptions{
		logger:      zap.NewNop(),
		clock:       time.Now,
		eventBuffer: defaultEventBuffer,
	}
}

// WithLogger sets the logger for the Manager.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(o *managerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides time.Now (useful for testing).
func WithClock(clock func() time.Time) ManagerOption {
	return func(o *managerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithNormalizer rewrites images as they are attached.
func WithNormalizer(n Normalizer) ManagerOption {
	return func(o *managerOptions) {
		o.normalizer = n
	}
}

// WithSaveErrorHandler registers a callback for failed background saves.
// It runs on the writer goroutine. Without it failures are only logged.
func WithSaveErrorHandler(fn func(error)) ManagerOption {
	return func(o *managerOptions) {
		o.onSaveError = fn
	}
}

// WithEventBuffer sets the buffer size of Watch channels.
// Zero means default (100).
func WithEventBuffer(size int) ManagerOption {
	return func(o *managerOptions) {
		o.eventBuffer = size
	}
}

// WithSaveTimeout bounds every SaveAll call. Zero disables the bound.
func WithSaveTimeout(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		o.saveTimeout = d
	}
}
