package terminal

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	args         []string
	dir          string
	env          []string
	cols, rows   uint16
	idleFlush    time.Duration
	closeTimeout time.Duration
	logger       *zap.Logger
}

// Option configures a Session created by New.
type Option func(*options)

// WithArgs sets the arguments passed to the program.
func WithArgs(args ...string) Option {
	return func(o *options) {
		o.args = args
	}
}

// WithDir sets the working directory of the program.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithEnv appends environment variables ("KEY=VALUE") to the inherited
// environment.
func WithEnv(env ...string) Option {
	return func(o *options) {
		o.env = append(o.env, env...)
	}
}

// WithSize sets the terminal dimensions (columns x rows).
func WithSize(cols, rows uint16) Option {
	return func(o *options) {
		o.cols = cols
		o.rows = rows
	}
}

// WithIdleFlush sets how long the reader waits for a line terminator
// before emitting a buffered partial line.
func WithIdleFlush(d time.Duration) Option {
	return func(o *options) {
		o.idleFlush = d
	}
}

// WithCloseTimeout bounds each stage of Close: the grace period after
// SIGTERM and the wait for the reader goroutines.
func WithCloseTimeout(d time.Duration) Option {
	return func(o *options) {
		o.closeTimeout = d
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

const (
	defaultCols         = 120
	defaultRows         = 40
	defaultIdleFlush    = 100 * time.Millisecond
	defaultCloseTimeout = time.Second
	minIdleFlush        = 10 * time.Millisecond
)

func defaultOptions() options {
	return options{
		cols:         defaultCols,
		rows:         defaultRows,
		idleFlush:    defaultIdleFlush,
		closeTimeout: defaultCloseTimeout,
		logger:       zap.NewNop(),
	}
}
