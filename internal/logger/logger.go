// Package logger configures the slog logger shared by buddyctl and the
// memory packages.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It's initialized to discard all output by default.
// Call Init() to enable logging.
var L = Discard()

const (
	logPrefix     = "buddyctl-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Format selects the handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Level   slog.Level // Minimum log level. Default: LevelInfo
	Format  Format     // text or json. Default: text
	Writer  io.Writer  // Destination. Default: stderr, or a daily file when LogDir is set
	LogDir  string     // When set and Writer is nil, log to LogDir/buddyctl-YYYY-MM-DD.log
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New builds a logger from opts without touching L. The returned closer
// releases the log file, if one was opened.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	if !opts.Enabled {
		return Discard(), nopCloser{}, nil
	}

	var closer io.Closer = nopCloser{}
	w := opts.Writer
	if w == nil && opts.LogDir != "" {
		f, err := openDaily(opts.LogDir)
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, f
	}
	if w == nil {
		w = os.Stderr
	}

	ho := &slog.HandlerOptions{Level: opts.Level}
	switch opts.Format {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(w, ho)), closer, nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, ho)), closer, nil
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q (want text or json)", opts.Format)
	}
}

// Init configures L. Call from main() before any log calls.
func Init(opts Options) (io.Closer, error) {
	l, c, err := New(opts)
	if err != nil {
		return nil, err
	}
	L = l
	return c, nil
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func openDaily(logDir string) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	// Clean up old logs (best-effort, ignore errors)
	cleanOldLogs(logDir, time.Now())

	filename := filepath.Join(logDir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	return os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// buddyctl-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
