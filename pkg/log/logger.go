package log

// Logger defines the logging interface used across the controller.
// It keeps packages decoupled from the concrete logging library.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	// WithField returns a logger that appends key=value to every entry.
	WithField(key string, value interface{}) Logger
}
