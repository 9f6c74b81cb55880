// Package logger provides the structured logging abstraction shared by the
// facilitator's components. The daemon installs the zap implementation;
// library embedders get the noop logger unless they supply their own.
package logger

// Logger is the facilitator's logging interface. Fields carry request-scoped
// context such as network, payer and transaction signature.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NoopLogger discards everything. It is the default for library use.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
