package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"promptgate/pkg/utils"
)

// StreamDebugger dumps raw provider chunks to disk when enabled.
type StreamDebugger struct {
	file    *os.File
	enabled bool
}

// NewStreamDebugger opens debug/chunks/[<debug_id>/]<provider>/<timestamp>.log.
// Any failure disables the debugger instead of failing the call.
func NewStreamDebugger(ctx context.Context, provider string, enabled bool) *StreamDebugger {
	if !enabled {
		return &StreamDebugger{}
	}

	debugDir := filepath.Join("debug", "chunks", provider)
	if id := utils.DebugID(ctx); id != "" {
		debugDir = filepath.Join("debug", "chunks", id, provider)
	}

	if err := os.MkdirAll(debugDir, 0755); err != nil {
		slog.ErrorContext(ctx, "Failed to create debug directory", "dir", debugDir, "error", err)
		return &StreamDebugger{}
	}

	timestamp := time.Now().Format("20060102_150405.000")
	filename := filepath.Join(debugDir, fmt.Sprintf("%s.log", timestamp))

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to open debug file", "file", filename, "error", err)
		return &StreamDebugger{}
	}

	slog.DebugContext(ctx, "Debug mode ON", "provider", provider, "file", filename)
	return &StreamDebugger{file: f, enabled: true}
}

// WriteString appends s and a newline.
func (d *StreamDebugger) WriteString(s string) {
	if !d.enabled || d.file == nil {
		return
	}
	if _, err := d.file.WriteString(s + "\n"); err != nil {
		slog.Warn("Failed to write to debug file", "error", err)
	}
}

// WriteJSON appends v encoded as one JSON line.
func (d *StreamDebugger) WriteJSON(v any) {
	if !d.enabled || d.file == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to encode debug chunk", "error", err)
		return
	}
	d.WriteString(string(data))
}

// Close closes the debug file.
func (d *StreamDebugger) Close() {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
}
