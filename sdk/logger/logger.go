package logger

import (
	"github.com/jxo-me/talpa/core/logger"
	"github.com/sirupsen/logrus"
	"io"
	"os"
)

type LoggerOptions struct {
	Name   string
	Output io.Writer
	Format logger.LogFormat
	Level  logger.LogLevel
	Fields map[string]any
}

type LoggerOption func(opts *LoggerOptions)

func NameLoggerOption(name string) LoggerOption {
	return func(opts *LoggerOptions) {
		opts.Name = name
	}
}

func OutputLoggerOption(out io.Writer) LoggerOption {
	return func(opts *LoggerOptions) {
		opts.Output = out
	}
}

func FormatLoggerOption(format logger.LogFormat) LoggerOption {
	return func(opts *LoggerOptions) {
		opts.Format = format
	}
}

func LevelLoggerOption(level logger.LogLevel) LoggerOption {
	return func(opts *LoggerOptions) {
		opts.Level = level
	}
}

func FieldsLoggerOption(fields map[string]any) LoggerOption {
	return func(opts *LoggerOptions) {
		opts.Fields = fields
	}
}

type logrusLogger struct {
	logger *logrus.Entry
}

var _ logger.ILogger = (*logrusLogger)(nil)

func NewLogger(opts ...LoggerOption) logger.ILogger {
	var options LoggerOptions
	for _, opt := range opts {
		opt(&options)
	}

	log := logrus.New()
	if options.Output != nil {
		log.SetOutput(options.Output)
	} else {
		log.SetOutput(os.Stderr)
	}

	switch options.Format {
	case logger.JSONFormat:
		log.SetFormatter(&logrus.JSONFormatter{
			DisableHTMLEscape: true,
		})
	default:
		log.SetFormatter(&logrus.TextFormatter{
			DisableQuote:     true,
			FullTimestamp:    true,
			DisableSorting:   false,
			QuoteEmptyFields: true,
		})
	}

	switch options.Level {
	case logger.TraceLevel, logger.DebugLevel, logger.InfoLevel,
		logger.WarnLevel, logger.ErrorLevel, logger.FatalLevel:
		lvl, _ := logrus.ParseLevel(string(options.Level))
		log.SetLevel(lvl)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	entry := logrus.NewEntry(log)
	if options.Name != "" {
		entry = entry.WithField("logger", options.Name)
	}
	if len(options.Fields) > 0 {
		entry = entry.WithFields(options.Fields)
	}
	return &logrusLogger{logger: entry}
}

// Nop returns a logger that writes nowhere.
func Nop() logger.ILogger {
	return NewLogger(OutputLoggerOption(io.Discard))
}

// WithFields adds new fields to log.
func (l *logrusLogger) WithFields(fields map[string]any) logger.ILogger {
	return &logrusLogger{
		logger: l.logger.WithFields(fields),
	}
}

// Trace logs a message at level Trace.
func (l *logrusLogger) Trace(args ...any) {
	l.logger.Trace(args...)
}

// Tracef logs a message at level Trace.
func (l *logrusLogger) Tracef(format string, args ...any) {
	l.logger.Tracef(format, args...)
}

// Debug logs a message at level Debug.
func (l *logrusLogger) Debug(args ...any) {
	l.logger.Debug(args...)
}

// Debugf logs a message at level Debug.
func (l *logrusLogger) Debugf(format string, args ...any) {
	l.logger.Debugf(format, args...)
}

// Info logs a message at level Info.
func (l *logrusLogger) Info(args ...any) {
	l.logger.Info(args...)
}

// Infof logs a message at level Info.
func (l *logrusLogger) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

// Warn logs a message at level Warn.
func (l *logrusLogger) Warn(args ...any) {
	l.logger.Warn(args...)
}

// Warnf logs a message at level Warn.
func (l *logrusLogger) Warnf(format string, args ...any) {
	l.logger.Warnf(format, args...)
}

// Error logs a message at level Error.
func (l *logrusLogger) Error(args ...any) {
	l.logger.Error(args...)
}

// Errorf logs a message at level Error.
func (l *logrusLogger) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}

// Fatal logs a message at level Fatal then the process will exit with status set to 1.
func (l *logrusLogger) Fatal(args ...any) {
	l.logger.Fatal(args...)
}

// Fatalf logs a message at level Fatal then the process will exit with status set to 1.
func (l *logrusLogger) Fatalf(format string, args ...any) {
	l.logger.Fatalf(format, args...)
}

func (l *logrusLogger) GetLevel() logger.LogLevel {
	switch l.logger.Logger.GetLevel() {
	case logrus.TraceLevel:
		return logger.TraceLevel
	case logrus.DebugLevel:
		return logger.DebugLevel
	case logrus.InfoLevel:
		return logger.InfoLevel
	case logrus.WarnLevel:
		return logger.WarnLevel
	case logrus.ErrorLevel:
		return logger.ErrorLevel
	default:
		return logger.FatalLevel
	}
}

func (l *logrusLogger) IsLevelEnabled(level logger.LogLevel) bool {
	lvl, err := logrus.ParseLevel(string(level))
	if err != nil {
		return false
	}
	return l.logger.Logger.IsLevelEnabled(lvl)
}
