// Package logger adapts the structured zap logger to the logging ports of the
// use cases and adapters.
package logger

import (
	"context"
	"maps"
)

// Logger is the method set of the goLibMyCarrier zap logger that the adapter relies on.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, err error, fields map[string]any)
}

// ComponentField is the field key that identifies which part of commitsense logged an event.
const ComponentField = "component"

// ZapAdapter forwards log events to a Logger, merging a fixed set of scope fields
// into every event.
type ZapAdapter struct {
	log   Logger
	scope map[string]any
}

// NewZapAdapter creates a new ZapAdapter wrapping the given logger.
func NewZapAdapter(log Logger) *ZapAdapter {
	return &ZapAdapter{log: log}
}

// WithComponent returns an adapter that tags every event with the component name.
func (a *ZapAdapter) WithComponent(name string) *ZapAdapter {
	return a.WithFields(map[string]any{ComponentField: name})
}

// WithFields returns an adapter that adds fields to every event. Fields passed to an
// individual call take precedence over scope fields with the same key.
func (a *ZapAdapter) WithFields(fields map[string]any) *ZapAdapter {
	scope := make(map[string]any, len(a.scope)+len(fields))
	maps.Copy(scope, a.scope)
	maps.Copy(scope, fields)
	return &ZapAdapter{log: a.log, scope: scope}
}

// Info logs an info message.
func (a *ZapAdapter) Info(ctx context.Context, msg string, fields map[string]any) {
	a.log.Info(ctx, msg, a.merge(fields))
}

// Debug logs a debug message.
func (a *ZapAdapter) Debug(ctx context.Context, msg string, fields map[string]any) {
	a.log.Debug(ctx, msg, a.merge(fields))
}

// Warn logs a warning message.
func (a *ZapAdapter) Warn(ctx context.Context, msg string, fields map[string]any) {
	a.log.Warn(ctx, msg, a.merge(fields))
}

// Error logs an error message.
func (a *ZapAdapter) Error(ctx context.Context, msg string, err error, fields map[string]any) {
	a.log.Error(ctx, msg, err, a.merge(fields))
}

func (a *ZapAdapter) merge(fields map[string]any) map[string]any {
	if len(a.scope) == 0 {
		return fields
	}
	merged := make(map[string]any, len(a.scope)+len(fields))
	maps.Copy(merged, a.scope)
	maps.Copy(merged, fields)
	return merged
}
