package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Options selects the logging backend and its output format.
type Options struct {
	Backend string // "slog" (default) or "zap"
	Format  string // "json", "text" or "auto"
	Level   string // "debug", "info", "warn" or "error"
}

var isTerminal = term.IsTerminal

// New builds a Logger writing to w. With Format "auto", text is used when w
// is a terminal and JSON otherwise.
func New(w io.Writer, opts Options) (Logger, error) {
	format := strings.ToLower(opts.Format)
	if format == "" || format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && isTerminal(int(f.Fd())) {
			format = "text"
		}
	}
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	switch strings.ToLower(opts.Backend) {
	case "", "slog":
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(levelOrDefault(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		ho := &slog.HandlerOptions{Level: lvl}
		var h slog.Handler = slog.NewJSONHandler(w, ho)
		if format == "text" {
			h = slog.NewTextHandler(w, ho)
		}
		return NewSlogLogger(slog.New(h)), nil
	case "zap":
		lvl, err := zapcore.ParseLevel(levelOrDefault(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "timestamp"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		var enc zapcore.Encoder = zapcore.NewJSONEncoder(ec)
		if format == "text" {
			enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		}
		core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
		return NewZapLogger(zap.New(core)), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}

func levelOrDefault(l string) string {
	if l == "" {
		return "info"
	}
	return strings.ToLower(l)
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})))
}
