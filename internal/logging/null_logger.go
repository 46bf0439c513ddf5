package logging

// NullLogger drops every message. Sinks and connectors built in tests use it
// when log output is not under assertion.
type NullLogger struct{}

// NewNullLogger returns a logger that writes nothing.
func NewNullLogger() *NullLogger { return &NullLogger{} }

func (*NullLogger) Verbose(string, ...interface{}) {}
func (*NullLogger) Info(string, ...interface{})    {}
func (*NullLogger) Error(string, ...interface{})   {}
