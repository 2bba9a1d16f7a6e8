package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"vipra/internal/application/port/output"
)

var _ output.LoggerPort = (*LoggerAdapter)(nil)

type Options struct {
	Level string `mapstructure:"level"`
	// Format applies to the console sink; the file sink is always JSON.
	Format  string `mapstructure:"format"`
	Dir     string `mapstructure:"dir"`
	Console bool   `mapstructure:"console"`
}

func DefaultOptions() Options {
	return Options{
		Level:   "info",
		Format:  "console",
		Dir:     "log",
		Console: false,
	}
}

type LoggerAdapter struct {
	sugar *zap.SugaredLogger
	file  *os.File
}

// NewLoggerAdapter writes JSON lines to <dir>/<timestamp>_<name>.log and,
// when enabled, to stderr.
func NewLoggerAdapter(name string, opts Options) (*LoggerAdapter, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var (
		cores []zapcore.Core
		file  *os.File
	)
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), sanitize(name))
		file, err = os.Create(filepath.Join(opts.Dir, filename))
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}
	if opts.Console {
		enc := zapcore.NewConsoleEncoder(encCfg)
		if strings.EqualFold(opts.Format, "json") {
			enc = zapcore.NewJSONEncoder(encCfg)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level))
	}
	if len(cores) == 0 {
		return NewNopLogger(), nil
	}

	return &LoggerAdapter{
		sugar: zap.New(zapcore.NewTee(cores...)).Sugar(),
		file:  file,
	}, nil
}

func NewNopLogger() *LoggerAdapter {
	return &LoggerAdapter{sugar: zap.NewNop().Sugar()}
}

// NewTestLogger routes log output through t.Log.
func NewTestLogger(t zaptest.TestingT) *LoggerAdapter {
	return &LoggerAdapter{sugar: zaptest.NewLogger(t).Sugar()}
}

func (l *LoggerAdapter) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *LoggerAdapter) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *LoggerAdapter) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *LoggerAdapter) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{sugar: l.sugar.With(key, value)}
}

func (l *LoggerAdapter) With(args ...any) output.LoggerPort {
	return &LoggerAdapter{sugar: l.sugar.With(args...)}
}

// Close flushes buffered entries. Only the logger that opened the file
// closes it; derived loggers just sync.
func (l *LoggerAdapter) Close() error {
	_ = l.sugar.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *LoggerAdapter) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "_")
	if s == "" {
		return "vipra"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
