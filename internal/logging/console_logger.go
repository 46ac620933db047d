package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleLogger writes log messages to stderr.
// Verbose maps to zap's debug level and is only enabled in verbose mode.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	sugar *zap.SugaredLogger
}

// NewConsoleLogger creates a new ConsoleLogger writing to stderr.
// If verbose is true, Verbose() calls will produce output.
// If verbose is false, Verbose() calls are no-ops.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewConsoleLoggerTo(os.Stderr, verbose)
}

// NewConsoleLoggerTo creates a ConsoleLogger that writes to w.
func NewConsoleLoggerTo(w io.Writer, verbose bool) *ConsoleLogger {
	encoderCfg := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		EncodeLevel:      encodeLevelPrefix,
		ConsoleSeparator: " ",
		LineEnding:       zapcore.DefaultLineEnding,
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)
	return &ConsoleLogger{sugar: zap.New(core).Sugar()}
}

// encodeLevelPrefix renders debug as [VERBOSE], error and above as [ERROR],
// and leaves info lines unprefixed.
func encodeLevelPrefix(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch {
	case l == zapcore.DebugLevel:
		enc.AppendString("[VERBOSE]")
	case l == zapcore.WarnLevel:
		enc.AppendString("[WARN]")
	case l >= zapcore.ErrorLevel:
		enc.AppendString("[ERROR]")
	}
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered output.
func (l *ConsoleLogger) Sync() error {
	return l.sugar.Sync()
}
