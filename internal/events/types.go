package events

// Event type constants for kelindar/event.
const (
	TypeServerStateChanged uint32 = iota + 1
	TypeServerOutput
	TypeHealthChecked
	TypeShutdownRequested
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ServerStateChangedEvent is published on every supervisor state transition.
type ServerStateChangedEvent struct {
	RunID     string `json:"run_id"`
	PID       int    `json:"pid"`
	From      string `json:"from"`
	To        string `json:"to"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Timestamp string `json:"timestamp"`

	// StartupSeconds is set on the transition to ready.
	StartupSeconds float64 `json:"startup_seconds,omitempty"`
}

// Type returns the event type identifier for ServerStateChangedEvent.
func (e ServerStateChangedEvent) Type() uint32 { return TypeServerStateChanged }

// ServerOutputEvent carries one line of backend output.
type ServerOutputEvent struct {
	Source    string `json:"source"` // stdout or stderr
	Line      string `json:"line"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ServerOutputEvent.
func (e ServerOutputEvent) Type() uint32 { return TypeServerOutput }

// HealthCheckedEvent is the result of a Server Status check.
type HealthCheckedEvent struct {
	Status    string  `json:"status"`
	Version   string  `json:"version"`
	Error     string  `json:"error,omitempty"`
	Seconds   float64 `json:"seconds"`
	Timestamp string  `json:"timestamp"`
}

// Type returns the event type identifier for HealthCheckedEvent.
func (e HealthCheckedEvent) Type() uint32 { return TypeHealthChecked }

// ShutdownRequestedEvent is published by each application termination hook.
type ShutdownRequestedEvent struct {
	Reason    string `json:"reason"` // window-all-closed, before-quit, quit, signal, startup-failed
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ShutdownRequestedEvent.
func (e ShutdownRequestedEvent) Type() uint32 { return TypeShutdownRequested }
