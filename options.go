package spandump

import (
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

type config struct {
	logger *zap.Logger
	clock  clockz.Clock
}

func defaultConfig() config {
	return config{
		logger: zap.NewNop(),
		clock:  clockz.RealClock,
	}
}

// Option configures a Registry.
type Option func(*config)

// WithLogger sets the logger used to report tolerated anomalies such as
// duplicate ids and closes of unknown spans. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock used to stamp snapshots.
// Enables clock injection for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}
