package logging

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with additional functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// Config represents logger configuration
type Config struct {
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Format      string `json:"format" yaml:"format" mapstructure:"format"`
	Output      string `json:"output" yaml:"output" mapstructure:"output"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	Development bool   `json:"development" yaml:"development" mapstructure:"development"`
}

// Field represents a log field
type Field = zapcore.Field

// NewLogger creates a new logger instance.
// Modules write their result to stdout, so an empty Output means stderr.
func NewLogger(config Config) (*Logger, error) {
	levelName := config.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zapConfig zap.Config

	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig.Level = zap.NewAtomicLevelAt(level)

	switch strings.ToLower(config.Format) {
	case "console":
		zapConfig.Encoding = "console"
	default:
		zapConfig.Encoding = "json"
	}

	switch strings.ToLower(config.Output) {
	case "", "stderr":
		zapConfig.OutputPaths = []string{"stderr"}
	case "stdout":
		return nil, fmt.Errorf("log output stdout is reserved for the module result")
	default:
		zapConfig.OutputPaths = []string{config.Output}
	}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	zapConfig.InitialFields = map[string]interface{}{
		"service": config.ServiceName,
	}

	zapLogger, err := zapConfig.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: config.ServiceName,
	}, nil
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// FromZap wraps an existing zap logger, typically a zaptest logger
func FromZap(zapLogger *zap.Logger, serviceName string) *Logger {
	return &Logger{Logger: zapLogger, serviceName: serviceName}
}

// ServiceName returns the service the logger was built for
func (l *Logger) ServiceName() string {
	return l.serviceName
}

// WithInvocation tags every entry with the module invocation id
func (l *Logger) WithInvocation(invocationID string) *Logger {
	return &Logger{
		Logger:      l.Logger.With(zap.String("invocation_id", invocationID)),
		serviceName: l.serviceName,
	}
}

// WithComponent adds component information to logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:      l.Logger.With(zap.String("component", component)),
		serviceName: l.serviceName,
	}
}

// WithError adds error information to logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger:      l.Logger.With(zap.Error(err)),
		serviceName: l.serviceName,
	}
}

// WithFields adds multiple fields to logger
func (l *Logger) WithFields(fields ...Field) *Logger {
	return &Logger{
		Logger:      l.Logger.With(fields...),
		serviceName: l.serviceName,
	}
}

// LogChange logs the outcome of a reconciliation against a QRadar resource
func (l *Logger) LogChange(action, resource string, changed, checkMode bool, fields ...Field) {
	allFields := append([]Field{
		zap.String("event_type", "change"),
		zap.String("action", action),
		zap.String("resource", resource),
		zap.Bool("changed", changed),
		zap.Bool("check_mode", checkMode),
		zap.Time("event_timestamp", time.Now().UTC()),
	}, fields...)

	l.Info("Reconciliation result", allFields...)
}

// LogAPICall logs a single QRadar API exchange
func (l *Logger) LogAPICall(method, path string, statusCode int, duration time.Duration, fields ...Field) {
	allFields := append([]Field{
		zap.String("event_type", "api_call"),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", statusCode),
		zap.Duration("duration", duration),
	}, fields...)

	if statusCode >= 400 || statusCode == 0 {
		l.Warn("QRadar API call failed", allFields...)
		return
	}
	l.Debug("QRadar API call", allFields...)
}

// Cleanup flushes any buffered log entries
func (l *Logger) Cleanup() {
	if l.Logger != nil {
		_ = l.Logger.Sync()
	}
}
