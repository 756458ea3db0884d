// Package process supervises the B-Transfer backend as a child process.
//
// A Supervisor owns exactly one child:
//   - stdin, stdout and stderr are pipes, never inherited
//   - stdout is scanned for a readiness marker across chunk boundaries
//   - Start resolves once: ready, spawn error, startup timeout, early exit,
//     stop or cancellation, whichever happens first
//   - any failed start terminates the child
//   - Stop is idempotent: SIGTERM once, SIGKILL after a grace period
//
// Example:
//
//	sup := process.NewSupervisor(&process.Options{
//	    Logger:    logging.GetLogger("supervisor"),
//	    LogParser: process.ParsePythonLogLevel,
//	})
//	defer sup.Stop()
//
//	err := sup.Start(ctx, process.Spec{
//	    Command:        "python3",
//	    Args:           []string{"b_transfer_server.py"},
//	    StartupTimeout: 10 * time.Second,
//	})
//	if errors.Is(err, process.ErrStartupTimeout) {
//	    // marker never appeared
//	}
package process
