package obslog

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Global logger, console and rotating file sinks.
var (
	globalLogger *zap.Logger = zap.NewNop()
)

// L returns the global logger. It is a no-op logger until Init runs.
func L() *zap.Logger { return globalLogger }

// Set replaces the global logger. Tests use it with zaptest/observer cores.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	globalLogger = l
}

// Options controls the sinks Init builds.
type Options struct {
	Level      string
	Console    bool
	File       bool
	Format     string // legacy | json | console
	Caller     bool
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// OptionsFromEnv reads LOG_* variables.
func OptionsFromEnv() Options {
	return Options{
		Level:      getenvDefault("LOG_LEVEL", "info"),
		Console:    strings.EqualFold(getenvDefault("LOG_TO_CONSOLE", "true"), "true"),
		File:       strings.EqualFold(getenvDefault("LOG_TO_FILE", "false"), "true"),
		Format:     getenvDefault("LOG_FORMAT", "legacy"),
		Caller:     strings.EqualFold(getenvDefault("LOG_CALLER", "false"), "true"),
		FilePath:   strings.TrimSpace(getenvDefault("LOG_FILE", filepath.Join("logs", "xo-bot.log"))),
		MaxSizeMB:  getenvInt("LOG_MAX_SIZE_MB", 10),
		MaxBackups: getenvInt("LOG_MAX_BACKUPS", 5),
		MaxAgeDays: getenvInt("LOG_MAX_AGE_DAYS", 30),
	}
}

// InitFromEnv initializes the global logger from the environment.
func InitFromEnv() error {
	return Init(OptionsFromEnv())
}

// Init builds the logger described by o and installs it globally.
func Init(o Options) error {
	logger, err := Build(o)
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// Build returns a logger without touching the global one.
func Build(o Options) (*zap.Logger, error) {
	level := parseLevel(o.Level)
	format := strings.ToLower(strings.TrimSpace(o.Format))
	if format != "legacy" && format != "json" && format != "console" {
		format = "legacy"
	}
	var cores []zapcore.Core

	if o.Console {
		cores = append(cores, zapcore.NewCore(encoderFor(format), zapcore.Lock(os.Stdout), level))
	}

	if o.File {
		if err := ensureDir(filepath.Dir(o.FilePath)); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   o.FilePath,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoderFor(format), zapcore.AddSync(rotator), level))
	}

	if len(cores) == 0 {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), level))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if o.Caller || format == "legacy" {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func encoderFor(format string) zapcore.Encoder {
	switch format {
	case "json":
		return zapcore.NewJSONEncoder(jsonEncoderConfig())
	case "console":
		return zapcore.NewConsoleEncoder(consoleEncoderConfig())
	default:
		return zapcore.NewConsoleEncoder(legacyEncoderConfig())
	}
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil && n > 0 {
		return n
	}
	return def
}

func legacyEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return cfg
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}
