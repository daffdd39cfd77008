package monitor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"promptgate/pkg/utils"
)

// level is shared by every handler created through SetupSlog so the log
// level can be changed at runtime (e.g. on system.json reload).
var level = new(slog.LevelVar)

// CustomHandler implements slog.Handler with a
// "[TIME] [LEVEL] [DEBUG_ID] message key=value" line format.
type CustomHandler struct {
	w       io.Writer
	mu      *sync.Mutex
	leveler slog.Leveler
	attrs   []slog.Attr
	group   string
}

// NewCustomHandler creates a handler writing to w. A nil leveler means info.
func NewCustomHandler(w io.Writer, leveler slog.Leveler) *CustomHandler {
	if leveler == nil {
		leveler = slog.LevelInfo
	}
	return &CustomHandler{
		w:       w,
		mu:      &sync.Mutex{},
		leveler: leveler,
	}
}

func (h *CustomHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.leveler.Level()
}

func (h *CustomHandler) Handle(ctx context.Context, r slog.Record) error {
	buf := bytes.NewBuffer(nil)

	fmt.Fprintf(buf, "[%s] [%s]", r.Time.Format("2006-01-02 15:04:05"), r.Level)
	if id := utils.DebugID(ctx); id != "" {
		fmt.Fprintf(buf, " [%s]", id)
	}
	fmt.Fprintf(buf, " %s", r.Message)

	for _, a := range h.attrs {
		h.appendAttr(buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(buf, h.group, a)
		return true
	})
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *CustomHandler) appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	val := a.Value.Resolve()
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if val.Kind() == slog.KindGroup {
		for _, ga := range val.Group() {
			h.appendAttr(buf, key, ga)
		}
		return
	}

	buf.WriteString(" ")
	buf.WriteString(key)
	buf.WriteString("=")
	switch val.Kind() {
	case slog.KindString:
		fmt.Fprintf(buf, "%q", val.String())
	case slog.KindTime:
		buf.WriteString(val.Time().Format(time.RFC3339))
	case slog.KindDuration:
		buf.WriteString(val.Duration().String())
	default:
		fmt.Fprintf(buf, "%v", val.Any())
	}
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	if nh.group != "" {
		nh.group += "." + name
	} else {
		nh.group = name
	}
	return &nh
}

// ParseLevel converts "debug", "info", "warn"/"warning" or "error" to a
// slog.Level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// SetupSlog installs the CustomHandler as the default slog logger on stderr.
func SetupSlog(levelStr string) {
	level.Set(ParseLevel(levelStr))
	slog.SetDefault(slog.New(NewCustomHandler(os.Stderr, level)))
}

// SetLevel changes the level of the logger installed by SetupSlog.
func SetLevel(levelStr string) {
	next := ParseLevel(levelStr)
	if level.Level() != next {
		level.Set(next)
		slog.Info("Log level changed", "level", next.String())
	}
}
