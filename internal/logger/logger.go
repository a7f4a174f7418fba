package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"skytrack/internal/config"
)

// Logger wraps zap.SugaredLogger with the fields this service attaches most.
type Logger struct {
	*zap.SugaredLogger
}

// New builds a console logger for development and a JSON logger otherwise.
func New(cfg config.Log) (*Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}

	z, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{SugaredLogger: z.Sugar()}, nil
}

// Nop discards everything. Tests use it.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(fields...)}
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

func (l *Logger) WithUserID(uid string) *Logger {
	return l.WithFields("user_id", uid)
}

// LogUserAction records a mutation a user made to their data.
func (l *Logger) LogUserAction(uid, action string, kv ...interface{}) {
	fields := append([]interface{}{"user_id", uid, "action", action}, kv...)
	l.Infow("user action", fields...)
}

// LogSecurityEvent records failed logins, rejected tokens and similar.
func (l *Logger) LogSecurityEvent(event, uid, ip string) {
	l.Warnw("security event", "security_event", event, "user_id", uid, "ip", ip)
}

func (l *Logger) Close() error {
	return l.SugaredLogger.Sync()
}
