package output

// LoggerPort takes alternating key/value pairs after the message.
type LoggerPort interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	WithField(key string, value any) LoggerPort
	With(args ...any) LoggerPort

	Close() error
}
