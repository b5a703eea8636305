// Package logging defines the structured-logging interface used across the
// auth service, with slog and zap backends.
package logging

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "account created", "account_id", id)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// New builds the Logger selected by format: "json" and "text" use slog,
// "zap" and "zap-dev" use zap's production and development presets.
func New(format, level string) (Logger, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return NewSlogJSON(os.Stdout, level), nil
	case "text":
		return NewSlogText(os.Stdout, level), nil
	case "zap":
		return NewZapProduction(level)
	case "zap-dev":
		return NewZapDevelopment(level)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(context.Context, string, ...any) {}
func (Nop) Info(context.Context, string, ...any)  {}
func (Nop) Warn(context.Context, string, ...any)  {}
func (Nop) Error(context.Context, string, ...any) {}
func (n Nop) With(...any) Logger                  { return n }
