package process

import "time"

// State represents the current state of a supervised process.
type State string

// Supervisor states.
const (
	StateIdle     State = "idle"     // Nothing spawned yet
	StateStarting State = "starting" // Spawned, waiting for the readiness marker
	StateReady    State = "ready"    // Marker observed
	StateFailed   State = "failed"   // Startup attempt lost (spawn error, timeout, early exit, stop)
	StateStopping State = "stopping" // Termination signal sent
	StateStopped  State = "stopped"  // Child gone, supervisor finished
)

// Info contains a snapshot of the supervised process.
type Info struct {
	RunID     string
	State     State
	Command   string
	PID       int
	StartedAt time.Time
	ReadyAt   time.Time
	ExitCode  int
	Exited    bool
	LastError error
}

// StartupDuration returns how long the process took to become ready.
// Zero if it never did.
func (i Info) StartupDuration() time.Duration {
	if i.ReadyAt.IsZero() || i.StartedAt.IsZero() {
		return 0
	}
	return i.ReadyAt.Sub(i.StartedAt)
}
