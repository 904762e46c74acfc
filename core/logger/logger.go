package logger

import "sync/atomic"

// LogFormat is format type
type LogFormat string

const (
	TextFormat LogFormat = "text"
	JSONFormat LogFormat = "json"
)

// LogLevel is Logger Level type
type LogLevel string

const (
	// TraceLevel has verbose message
	TraceLevel LogLevel = "trace"
	// DebugLevel has verbose message
	DebugLevel LogLevel = "debug"
	// InfoLevel is default log level
	InfoLevel LogLevel = "info"
	// WarnLevel is for logging messages about possible issues
	WarnLevel LogLevel = "warn"
	// ErrorLevel is for logging errors
	ErrorLevel LogLevel = "error"
	// FatalLevel is for logging fatal messages. The system shuts down after logging the message.
	FatalLevel LogLevel = "fatal"
)

type ILogger interface {
	WithFields(map[string]any) ILogger
	Trace(args ...any)
	Tracef(format string, args ...any)
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	GetLevel() LogLevel
	IsLevelEnabled(level LogLevel) bool
}

type holder struct{ ILogger }

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(holder{nopLogger{}})
}

// Default returns the process-wide logger. It discards everything until SetDefault is called.
func Default() ILogger {
	return defaultLogger.Load().(holder).ILogger
}

func SetDefault(l ILogger) {
	if l == nil {
		l = nopLogger{}
	}
	defaultLogger.Store(holder{l})
}

type nopLogger struct{}

func (l nopLogger) WithFields(map[string]any) ILogger { return l }
func (nopLogger) Trace(...any)                         {}
func (nopLogger) Tracef(string, ...any)                {}
func (nopLogger) Debug(...any)                         {}
func (nopLogger) Debugf(string, ...any)                {}
func (nopLogger) Info(...any)                          {}
func (nopLogger) Infof(string, ...any)                 {}
func (nopLogger) Warn(...any)                          {}
func (nopLogger) Warnf(string, ...any)                 {}
func (nopLogger) Error(...any)                         {}
func (nopLogger) Errorf(string, ...any)                {}
func (nopLogger) Fatal(...any)                         {}
func (nopLogger) Fatalf(string, ...any)                {}
func (nopLogger) GetLevel() LogLevel                   { return InfoLevel }
func (nopLogger) IsLevelEnabled(LogLevel) bool         { return false }
