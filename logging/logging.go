// Package logging defines the small structured-logging interface shared
// by the importer (C9) and live-sync coordinator (C10). Grounded on the
// teacher's chains.Logger / streams/jsonrpc/client.Logger shape
// (Debug/Info/Warn/Error(msg string, args ...any)) so library components
// depend on an interface, never a concrete *slog.Logger, and tests can
// inject a no-op implementation the way streams/jsonrpc/client does.
package logging

// Logger is a minimal structured, leveled logging interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Nop is a Logger that discards everything -- the default for components
// constructed without an explicit logger, and the one tests inject.
type Nop struct{}

func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
