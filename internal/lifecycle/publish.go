package lifecycle

import (
	"github.com/balsim/btransfer-desktop/internal/events"
	"github.com/balsim/btransfer-desktop/internal/process"
)

// StateChangePublisher returns a supervisor callback that publishes every
// transition on bus.
func StateChangePublisher(bus *events.Bus) process.StateChangeCallback {
	return func(info process.Info, oldState, newState process.State, err error) {
		ev := events.ServerStateChangedEvent{
			RunID:     info.RunID,
			PID:       info.PID,
			From:      string(oldState),
			To:        string(newState),
			Timestamp: events.Now(),
		}
		if err != nil {
			ev.Error = err.Error()
			ev.ErrorCode = string(process.CodeOf(err))
		}
		if newState == process.StateReady {
			ev.StartupSeconds = info.StartupDuration().Seconds()
		}
		bus.Publish(ev)
	}
}
