package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"hedge_pair_go/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields are structured values attached to a log line, e.g. label, round or exit mode.
type Fields = logrus.Fields

const timestampFormat = "2006-01-02 15:04:05"

// rotatingHook mirrors every entry into a lumberjack-rotated file with its own formatter, so the
// console can stay coloured while the file is plain text or JSON lines.
type rotatingHook struct {
	formatter logrus.Formatter
	writer    *lumberjack.Logger
}

func (h *rotatingHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *rotatingHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}

var (
	// Usable before Init; tests and the simulator log to stdout at info level.
	log  = newConsoleLogger(logrus.InfoLevel)
	hook *rotatingHook
)

func newConsoleLogger(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		ForceColors:            true,
		FullTimestamp:          true,
		TimestampFormat:        timestampFormat,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
	l.SetOutput(os.Stdout)
	return l
}

func newFileFormatter(format string) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	}
	return &logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
	}
}

// Init replaces the default console logger with one that also writes to a rotated file.
// An unknown level falls back to info; an empty file format means text.
func Init(cfg *config.LogConfig, logFilePath string) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}

	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// Only our logger produces output; stray logrus calls from dependencies are dropped.
	logrus.SetOutput(io.Discard)
	logrus.StandardLogger().Hooks = make(logrus.LevelHooks)

	Close()
	log = newConsoleLogger(level)
	hook = &rotatingHook{
		formatter: newFileFormatter(cfg.FileFormat),
		writer: &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
	}
	log.AddHook(hook)

	WithFields(Fields{"log_level": level.String(), "file": logFilePath}).Info("Logging system initialized")
	return nil
}

// SetOutput redirects console output, mainly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Close flushes and closes the rotated file. Safe to call more than once.
func Close() {
	if hook == nil {
		return
	}
	log.Info("Logging system closed.")
	hook.writer.Close()
	hook = nil
}

// WithFields starts a structured log line.
func WithFields(f Fields) *logrus.Entry { return log.WithFields(f) }

func Debug(args ...interface{})                 { log.Debug(args...) }
func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }
func Info(args ...interface{})                  { log.Info(args...) }
func Infof(format string, args ...interface{})  { log.Infof(format, args...) }
func Warn(args ...interface{})                  { log.Warn(args...) }
func Warnf(format string, args ...interface{})  { log.Warnf(format, args...) }
func Error(args ...interface{})                 { log.Error(args...) }
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }
func Fatal(args ...interface{})                 { log.Fatal(args...) }
func Fatalf(format string, args ...interface{}) { log.Fatalf(format, args...) }
