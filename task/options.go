package task

import (
	"time"

	"github.com/google/uuid"
)

// Option is a functional option for configuring a [Service].
type Option func(*Options)

// Options holds the configuration for a [Service].
type Options struct {
	clock       func() time.Time
	idGenerator func() string
	logger      Logger
}

func newOptions() *Options {
	return &Options{
		clock:       time.Now,
		idGenerator: func() string { return uuid.NewString() },
		logger:      NopLogger(),
	}
}

// WithClock sets the clock used to stamp CreatedAt on new tasks. Defaults to
// [time.Now]. This is useful for controlling time in tests.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator sets the function that generates IDs for new tasks. The
// default generates random UUIDs.
func WithIDGenerator(gen func() string) Option {
	return func(o *Options) {
		if gen != nil {
			o.idGenerator = gen
		}
	}
}

// WithLogger sets the logger used when the request context does not carry
// one. See [ContextWithLogger].
func WithLogger(logger Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
