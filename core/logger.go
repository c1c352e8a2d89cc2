package core

// Logger logs messages and reports errors.
// args may carry errors, map[string]interface{} extras and an Actor (the person behind the request).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies who triggered a logged event.
type Actor struct {
	ID    string
	Name  string
	Email string
}
