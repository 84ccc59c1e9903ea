package csp

import "github.com/webriots/csp/logging"

type loopConfig struct {
	name   string
	logger logging.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*loopConfig)

func defaultLoopConfig() loopConfig {
	return loopConfig{
		name:   "loop",
		logger: logging.NoOp(),
	}
}

// WithLogger sets the loop's logger. Task lifecycle events are logged
// at debug level. It panics if l is nil.
func WithLogger(l logging.Logger) LoopOption {
	return func(c *loopConfig) {
		if l == nil {
			panic("csp: WithLogger requires a non-nil logger")
		}
		c.logger = l
	}
}

// WithName names the loop in log entries.
func WithName(name string) LoopOption {
	return func(c *loopConfig) {
		c.name = name
	}
}

type taskConfig struct {
	name string
}

// TaskOption configures a Task.
type TaskOption func(*taskConfig)

// Named names a task in log entries and errors.
func Named(name string) TaskOption {
	return func(c *taskConfig) {
		c.name = name
	}
}
