// Package logger is the process-wide logging facade: slog underneath,
// printf-style helpers on top, with a runtime-adjustable level and output.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	minLevel slog.LevelVar
	sink     atomic.Pointer[slog.Logger]
)

func init() {
	minLevel.Set(slog.LevelInfo)
	sink.Store(build(os.Stdout))
}

func build(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &minLevel}))
}

// SetOutput redirects all subsequent records to w.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	sink.Store(build(w))
}

// SetLevel applies a textual level name. Unknown names mean info.
func SetLevel(name string) {
	minLevel.Set(parseLevel(name))
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a structured child logger carrying the given attrs, for call
// sites that log the same fields repeatedly.
func With(args ...any) *slog.Logger {
	return sink.Load().With(args...)
}

func Debugf(format string, v ...any) { sink.Load().Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { sink.Load().Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { sink.Load().Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { sink.Load().Error(fmt.Sprintf(format, v...)) }
