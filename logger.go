package goSession

// Logger receives the middleware's operational messages as structured key/value pairs.
// *slog.Logger and hclog.Logger both satisfy it.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
