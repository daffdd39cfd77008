package monitor

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// CLIMonitor implements Monitor by printing one line per operation to a
// terminal, so an operator can follow what clients are doing.
type CLIMonitor struct {
	writer io.Writer // The output destination, typically os.Stdout.
	mu     sync.Mutex
}

// NewCLIMonitor creates a CLI monitor writing to stdout.
func NewCLIMonitor() *CLIMonitor {
	return NewCLIMonitorTo(os.Stdout)
}

// NewCLIMonitorTo creates a CLI monitor writing to w.
func NewCLIMonitorTo(w io.Writer) *CLIMonitor {
	return &CLIMonitor{writer: w}
}

// Start prints the monitor header.
func (m *CLIMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	fmt.Fprintln(m.writer, "CLI Monitor Active - configure/register/predict/optimize calls appear here")
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	return nil
}

// Stop stops the CLI monitor.
func (m *CLIMonitor) Stop() error {
	return nil
}

// OnEvent prints a single event.
func (m *CLIMonitor) OnEvent(ev Event) {
	timestamp := ev.Timestamp.Format("2006-01-02 15:04:05")

	line := fmt.Sprintf("[%s] %s %s (%s)", ev.Operation, ev.Subject, ev.Status, ev.Duration.Round(1e6))
	if ev.Detail != "" {
		line += " " + ev.Detail
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Use gray color for timestamp
	fmt.Fprintf(m.writer, "\033[90m[%s]\033[0m %s\n", timestamp, line)
}
