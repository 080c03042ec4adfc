// Package actionlog records window actions (opens, failures, reloads,
// backups) as JSON lines in a size-rotated file.
package actionlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/1broseidon/winopen/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ActionType represents the type of action being logged.
type ActionType string

const (
	ActionOpen       ActionType = "OPEN"
	ActionOpenFailed ActionType = "OPEN-FAILED"
	ActionResolve    ActionType = "RESOLVE"
	ActionReload     ActionType = "RELOAD"
	ActionImport     ActionType = "IMPORT"
	ActionExport     ActionType = "EXPORT"
)

// actionLevel returns the log level for an action type.
func actionLevel(action ActionType) zapcore.Level {
	switch action {
	case ActionResolve:
		return zapcore.DebugLevel
	case ActionOpenFailed:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// LogConfig holds configuration for the action logger.
type LogConfig struct {
	Enabled   bool
	Level     string
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
	// Console, when set, receives the same entries in console format.
	Console zapcore.WriteSyncer
}

// Logger writes action entries. A nil *Logger is valid and drops everything.
type Logger struct {
	zl   *zap.Logger
	file *lumberjack.Logger
}

// NewLogger creates a logger for cfg. A disabled config yields a no-op logger.
func NewLogger(cfg LogConfig) (*Logger, error) {
	if !cfg.Enabled {
		return &Logger{zl: zap.NewNop()}, nil
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(cfg.Level)))); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.MessageKey = "action"

	var cores []zapcore.Core
	var file *lumberjack.Logger
	if cfg.FilePath != "" {
		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
		file = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxFiles,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level))
	}
	if cfg.Console != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), cfg.Console, level))
	}
	if len(cores) == 0 {
		return &Logger{zl: zap.NewNop()}, nil
	}

	return &Logger{
		zl:   zap.New(zapcore.NewTee(cores...)).Named("winopen"),
		file: file,
	}, nil
}

// Log records action for the named rule with extra fields.
func (l *Logger) Log(action ActionType, rule string, fields ...zap.Field) {
	if l == nil || l.zl == nil {
		return
	}
	if rule != "" {
		fields = append([]zap.Field{zap.String("rule", rule)}, fields...)
	}
	if ce := l.zl.Check(actionLevel(action), string(action)); ce != nil {
		ce.Write(fields...)
	}
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.zl == nil {
		return nil
	}
	_ = l.zl.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// NewFromConfig creates a logger from the logging section of cfg. Console
// entries go to stderr when logging.console is set.
func NewFromConfig(cfg *config.Config) (*Logger, error) {
	lc := cfg.GetLoggingConfig()
	logCfg := LogConfig{
		Enabled:   lc.Enabled,
		Level:     lc.Level,
		FilePath:  lc.File,
		MaxSizeMB: lc.MaxSizeMB,
		MaxFiles:  lc.MaxFiles,
	}
	if lc.Console {
		logCfg.Console = zapcore.Lock(os.Stderr)
	}
	return NewLogger(logCfg)
}
