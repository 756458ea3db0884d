package lifecycle

import (
	"runtime"

	"github.com/balsim/btransfer-desktop/internal/process"
)

// ServerScript is the backend entry point, relative to the application root.
const ServerScript = "b_transfer_server.py"

// DefaultSpec returns how the backend is launched on this platform.
func DefaultSpec(appRoot string) process.Spec {
	return SpecFor(runtime.GOOS, appRoot)
}

// SpecFor returns the launch spec for goos: the interpreter is "python" on
// Windows and "python3" elsewhere, run from appRoot.
func SpecFor(goos, appRoot string) process.Spec {
	return process.Spec{
		Command:        Interpreter(goos),
		Args:           []string{ServerScript},
		Dir:            appRoot,
		// A piped stdout is block-buffered by Python; the marker would arrive late.
		Env:            []string{"PYTHONUNBUFFERED=1"},
		StartupTimeout: process.DefaultStartupTimeout,
	}
}

// Interpreter returns the Python executable name for goos.
func Interpreter(goos string) string {
	if goos == "windows" {
		return "python"
	}
	return "python3"
}
