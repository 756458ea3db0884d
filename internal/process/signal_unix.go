//go:build !windows

package process

import (
	"errors"
	"os"
	"syscall"
)

// sysProcAttr puts the child in its own process group so that signals reach
// anything the interpreter spawns.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// terminateProcess asks the process group to exit.
func terminateProcess(p *os.Process) error {
	return signalGroup(p, syscall.SIGTERM)
}

// killProcess force kills the process group.
func killProcess(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}

func signalGroup(p *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-p.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	if err != nil {
		// Fall back to the leader alone, e.g. when the group is not ours.
		return p.Signal(sig)
	}
	return nil
}
