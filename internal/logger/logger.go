package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync/atomic"
)

const levelFatal = slog.LevelError + 4

var current atomic.Pointer[slog.Logger]

func init() {
	SetOutput(os.Stdout)
}

// Init routes JSON log lines to stdout.
func Init() {
	SetOutput(os.Stdout)
	Info("logger initialized", nil)
}

// SetOutput redirects log lines to w.
func SetOutput(w io.Writer) {
	current.Store(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.Any() == levelFatal {
				a.Value = slog.StringValue("FATAL")
			}
			return a
		},
	})))
}

func Info(msg string, fields map[string]any) {
	log(slog.LevelInfo, msg, fields)
}

func Warn(msg string, fields map[string]any) {
	log(slog.LevelWarn, msg, fields)
}

func Error(msg string, fields map[string]any) {
	log(slog.LevelError, msg, fields)
}

func Fatal(msg string, fields map[string]any) {
	log(levelFatal, msg, fields)
	os.Exit(1)
}

func log(level slog.Level, msg string, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	current.Load().LogAttrs(context.Background(), level, msg, attrs...)
}
