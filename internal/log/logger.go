package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Setup initializes the global logger. Unknown levels fall back to INFO and
// unknown formats fall back to JSON. Records are also copied to every extra
// writer, which is how the optional log file is attached.
func Setup(level, format string, extra ...io.Writer) {
	once.Do(func() {
		logger = newLogger(os.Stdout, level, format, extra...)
		slog.SetDefault(logger)
	})
}

func newLogger(w io.Writer, level, format string, extra ...io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		l = slog.LevelDebug
	case "WARN":
		l = slog.LevelWarn
	case "ERROR":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	if len(extra) > 0 {
		w = io.MultiWriter(append([]io.Writer{w}, extra...)...)
	}

	opts := &slog.HandlerOptions{Level: l}
	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// Get returns the configured logger, or a default one if Setup hasn't been called.
func Get() *slog.Logger {
	if logger == nil {
		Setup("INFO", "json")
	}
	return logger
}

// WithComponent returns a logger with the component field set.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// WithPrinter returns l with the printer field set.
func WithPrinter(l *slog.Logger, name string) *slog.Logger {
	return l.With(slog.String("printer", name))
}

// WithPeer returns l with the peer address set.
func WithPeer(l *slog.Logger, addr string) *slog.Logger {
	return l.With(slog.String("peer", addr))
}
