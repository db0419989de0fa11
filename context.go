package xswap

import (
	"context"
	"time"

	"github.com/iov-one/xswap/errors"
	"github.com/tendermint/tendermint/libs/log"
)

type contextKey int // local to the xswap module

const (
	contextKeyBlockTime contextKey = iota
	contextKeyLogger
)

var (
	// DefaultLogger is used for all context that have not
	// set anything themselves
	DefaultLogger = log.NewNopLogger()
)

// Context is just an alias for the standard implementation.
// We use functions to extend it to our domain
type Context = context.Context

// WithBlockTime sets the block time for the context. Block time is the only
// source of "now" for every protocol operation. Time is truncated to second
// precision.
//
// This panics if the block time was already set, to avoid a lower level
// component overwriting the value.
func WithBlockTime(ctx Context, t time.Time) Context {
	if _, ok := ctx.Value(contextKeyBlockTime).(time.Time); ok {
		panic("block time already set")
	}
	return context.WithValue(ctx, contextKeyBlockTime, t.Truncate(time.Second))
}

// BlockTime returns the block time as set in the context.
func BlockTime(ctx Context) (time.Time, bool) {
	t, ok := ctx.Value(contextKeyBlockTime).(time.Time)
	return t, ok
}

// BlockNow returns the block time as UnixTime. An error is returned if the
// context does not carry a block time.
func BlockNow(ctx Context) (UnixTime, error) {
	t, ok := BlockTime(ctx)
	if !ok {
		return 0, errors.Wrap(errors.ErrInvalidState, "block time not present")
	}
	return AsUnixTime(t), nil
}

// WithLogger sets the logger for this context
func WithLogger(ctx Context, logger log.Logger) Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// WithLogInfo accepts keyvalue pairs, and returns another
// context like this, after passing all the keyvals to the
// Logger
func WithLogInfo(ctx Context, keyvals ...interface{}) Context {
	logger := GetLogger(ctx).With(keyvals...)
	return WithLogger(ctx, logger)
}

// GetLogger returns the currently set logger, or
// DefaultLogger if none was set
func GetLogger(ctx Context) log.Logger {
	val, ok := ctx.Value(contextKeyLogger).(log.Logger)
	if !ok {
		return DefaultLogger
	}
	return val
}
