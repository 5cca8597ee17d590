package tfs

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// StatusLogger receives a diagnostic for every failed request, formatted as
// "TFSClientAPI: HTTP Error <code> (<reason>)". An error returned here aborts
// the operation and is passed to the caller; the per-call parameters are
// still cleared.
type StatusLogger interface {
	LogStatus(ctx context.Context, message string) error
}

// StatusLoggerFunc adapts a function to StatusLogger.
type StatusLoggerFunc func(ctx context.Context, message string) error

// LogStatus implements StatusLogger.
func (f StatusLoggerFunc) LogStatus(ctx context.Context, message string) error {
	return f(ctx, message)
}

// unimplementedStatusLogger is installed when no StatusLogger is configured,
// so an unhandled failure surfaces instead of disappearing.
type unimplementedStatusLogger struct{}

func (unimplementedStatusLogger) LogStatus(context.Context, string) error {
	return ErrStatusLoggerNotImplemented
}

// NewLogStatusLogger returns a StatusLogger that writes diagnostics to
// logger at error level.
func NewLogStatusLogger(logger hclog.Logger) StatusLogger {
	return StatusLoggerFunc(func(_ context.Context, message string) error {
		logger.Error(message)
		return nil
	})
}
