package process

import (
	"log/slog"
	"time"
)

// StateChangeCallback is called after every state transition.
// Used for domain-specific reactions (events, metrics).
type StateChangeCallback func(info Info, oldState, newState State, err error)

// Options configures a new Supervisor.
type Options struct {
	// Logger for supervisor operations. If nil, uses slog.Default().
	Logger *slog.Logger

	// OutputLogger receives the child's output lines. If nil, uses Logger.
	OutputLogger *slog.Logger

	// LogParser extracts log levels from child output (optional).
	LogParser LogParser

	// OutputHandler receives every stdout/stderr line (optional).
	OutputHandler OutputHandler

	// OnStateChange is called when the supervisor changes state (optional).
	OnStateChange StateChangeCallback

	// Marker overrides the readiness marker. Empty means readiness.Marker.
	Marker string

	// GracefulTimeout is how long Stop waits after the termination signal
	// before force killing. Default 5s.
	GracefulTimeout time.Duration

	// KillTimeout is how long Stop waits after the force kill. Default 5s.
	KillTimeout time.Duration
}
