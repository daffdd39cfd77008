package monitor

import "time"

// Event describes one completed engine operation.
type Event struct {
	Timestamp time.Time
	Operation string // "configure", "register", "predict", "optimize"
	Subject   string // signature name, module id or model string
	Status    string // "ok" or the error type
	Duration  time.Duration
	Detail    string
}

// OK reports whether the operation succeeded.
func (e Event) OK() bool {
	return e.Status == StatusOK
}

// StatusOK marks a successful Event.
const StatusOK = "ok"

// Monitor observes engine operations.
type Monitor interface {
	Start() error
	Stop() error
	OnEvent(ev Event)
}

// Multi fans events out to several monitors.
type Multi []Monitor

func (m Multi) Start() error {
	for _, mon := range m {
		if err := mon.Start(); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Stop() error {
	var first error
	for _, mon := range m {
		if err := mon.Stop(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) OnEvent(ev Event) {
	for _, mon := range m {
		mon.OnEvent(ev)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Start() error  { return nil }
func (Nop) Stop() error   { return nil }
func (Nop) OnEvent(Event) {}
