package portal

// Logger is the structured logger used by the repository and its collaborators.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything. Use in tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// progress logs download milestones at info level, or at debug level for
// silent runs.
func progress(l Logger, silent bool, msg string, args ...any) {
	if silent {
		l.Debug(msg, args...)
		return
	}
	l.Info(msg, args...)
}
