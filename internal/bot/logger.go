package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	debugColor = color.New(color.FgHiBlack)
	infoColor  = color.New(color.FgCyan)
	warnColor  = color.New(color.FgHiYellow)
	errorColor = color.New(color.FgHiRed, color.Bold)
	attrColor  = color.New(color.FgHiBlack)
)

// ParseLogLevel parses a level name such as "debug" or "warn".
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

// NewLogger builds the process logger described by cfg.
func NewLogger(w io.Writer, cfg *Config) *slog.Logger {
	level, err := ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}

	if cfg.LogFormat == LogFormatConsole {
		return slog.New(NewConsoleHandler(w, level))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// ConsoleHandler is a slog.Handler for humans: one colored line per record,
// "15:04:05 [LEVEL] [COMPONENT] message key=value".
type ConsoleHandler struct {
	w      io.Writer
	level  slog.Leveler
	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string
}

// NewConsoleHandler creates a new ConsoleHandler.
func NewConsoleHandler(w io.Writer, level slog.Leveler) *ConsoleHandler {
	return &ConsoleHandler{
		w:     w,
		level: level,
		mu:    &sync.Mutex{},
	}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	levelStr, levelColor := levelStyle(r.Level)

	var component string
	var attrs strings.Builder
	appendAttr := func(a slog.Attr) {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return
		}
		fmt.Fprintf(&attrs, " %s%s=%v", h.prefix, a.Key, a.Value.Any())
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(a)
		return true
	})

	var line strings.Builder
	line.WriteString(r.Time.Format(time.TimeOnly))
	line.WriteString(" ")
	line.WriteString(levelColor.Sprintf("[%s]", levelStr))
	if component != "" {
		line.WriteString(" ")
		line.WriteString(infoColor.Sprintf("[%s]", component))
	}
	line.WriteString(" ")
	line.WriteString(r.Message)
	if attrs.Len() > 0 {
		line.WriteString(attrColor.Sprint(attrs.String()))
	}
	line.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func levelStyle(level slog.Level) (string, *color.Color) {
	switch {
	case level >= slog.LevelError:
		return "ERROR", errorColor
	case level >= slog.LevelWarn:
		return "WARN", warnColor
	case level >= slog.LevelInfo:
		return "INFO", infoColor
	default:
		return "DEBUG", debugColor
	}
}
