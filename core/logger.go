package core

// Logger is any service that can log leveled messages.
// Extra args may carry context objects (an error, a map, a user) depending
// on the implementation.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
