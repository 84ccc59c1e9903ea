// Package logging provides the small logging interface used by csp
// loops and tasks, with an adapter over log/slog and a silent default.
//
// Usage:
//
//	logger := logging.NewLogger(logging.Config{Level: logging.LevelDebug, Format: "text"})
//	loop := csp.NewLoop(csp.WithLogger(logger))
//
// Arguments after the message are slog-style key/value pairs.
package logging
