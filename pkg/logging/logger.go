package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the process-wide log backend.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format of the console output: console or json.
	Format string `yaml:"format"`

	// Dir, if set, receives a rotating JSON log named <session-id>-webpilot.log
	Dir string `yaml:"dir"`

	// File overrides the file name derived from Dir
	File string `yaml:"file"`

	MaxSize    int  `yaml:"max_size"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAge     int  `yaml:"max_age"`
	Compress   bool `yaml:"compress"`
}

// Logger is a component logger. All loggers of a process share one backend
// and one session ID.
type Logger struct {
	component string
	sugar     *zap.SugaredLogger
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	backend atomic.Pointer[zap.Logger]
	logPath atomic.Pointer[string]
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// Init configures the backend used by loggers created afterwards. Console
// output goes to stderr.
func Init(cfg Config) error {
	return InitWithWriter(cfg, zapcore.Lock(os.Stderr))
}

// InitWithWriter is Init with an explicit console destination.
func InitWithWriter(cfg Config, console zapcore.WriteSyncer) error {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder(cfg.Format), console, level)}

	path := cfg.File
	if path == "" && cfg.Dir != "" {
		path = filepath.Join(cfg.Dir, fmt.Sprintf("%s-webpilot.log", getSessionID()))
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		// lumberjack handles rotation and concurrent writes.
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(encoder("json"), file, level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).
		With(zap.String("session", getSessionID()))

	if old := backend.Swap(logger); old != nil {
		_ = old.Sync()
	}
	logPath.Store(&path)
	return nil
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	if format == "json" {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + name + "]")
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// NewLogger creates a logger for a specific component. Before Init is called
// it discards everything.
func NewLogger(component string) *Logger {
	base := backend.Load()
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{
		component: component,
		sugar:     base.Named(component).Sugar(),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{component: l.component, sugar: l.sugar.With(keysAndValues...)}
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Component returns the component name
func (l *Logger) Component() string {
	return l.component
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// LogPath returns the log file in use, or "" if logging to the console only.
func LogPath() string {
	if p := logPath.Load(); p != nil {
		return *p
	}
	return ""
}

// Sync flushes the backend. Call it before the process exits.
func Sync() error {
	if l := backend.Load(); l != nil {
		return l.Sync()
	}
	return nil
}
