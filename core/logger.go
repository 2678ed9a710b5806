package core

// Logger is the app-wide logging contract.
// Implementations may forward entries to an error tracking service;
// extra args can carry errors and context maps.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
