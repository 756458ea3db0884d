package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"

	"github.com/balsim/btransfer-desktop/internal/readiness"
	"github.com/google/uuid"
)

// Supervisor owns a single child process: it starts it, waits for the readiness
// marker on stdout and terminates it exactly once.
//
// A Supervisor is single use. Start may be called once, from the idle state.
// Stop may be called any number of times from any goroutine.
type Supervisor struct {
	opts            Options
	logger          *slog.Logger
	outputLogger    *slog.Logger
	marker          string
	gracefulTimeout time.Duration
	killTimeout     time.Duration

	mu        sync.Mutex
	state     State
	spec      Spec
	runID     string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	startedAt time.Time
	readyAt   time.Time
	exitCode  int
	lastErr   error
	result    *startResult

	exited     chan struct{} // closed once the child is gone (or was never spawned)
	exitOnce   sync.Once
	signalOnce sync.Once
	stopOnce   sync.Once
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(opts *Options) *Supervisor {
	var o Options
	if opts != nil {
		o = *opts
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	outputLogger := o.OutputLogger
	if outputLogger == nil {
		outputLogger = logger
	}
	marker := o.Marker
	if marker == "" {
		marker = readiness.Marker
	}
	graceful := o.GracefulTimeout
	if graceful <= 0 {
		graceful = 5 * time.Second
	}
	kill := o.KillTimeout
	if kill <= 0 {
		kill = 5 * time.Second
	}

	return &Supervisor{
		opts:            o,
		logger:          logger,
		outputLogger:    outputLogger,
		marker:          marker,
		gracefulTimeout: graceful,
		killTimeout:     kill,
		state:           StateIdle,
		exitCode:        -1,
		exited:          make(chan struct{}),
	}
}

// Start spawns the child described by spec and blocks until the first of:
// the readiness marker on stdout (nil), a spawn error, the startup timeout,
// the child exiting, Stop, or ctx being cancelled. Any non-nil result is an
// *Error and the child, if any, is terminated.
func (s *Supervisor) Start(ctx context.Context, spec Spec) error {
	if spec.StartupTimeout <= 0 {
		spec.StartupTimeout = DefaultStartupTimeout
	}

	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return newError(CodeInvalidState, fmt.Sprintf("supervisor already used (state %s)", state), nil)
	}
	s.state = StateStarting
	s.spec = spec
	s.runID = uuid.NewString()
	s.startedAt = time.Now()
	s.result = newStartResult()
	result := s.result

	stdout, stderr, spawnErr := s.spawnLocked(spec)
	s.mu.Unlock()

	s.notifyStateChange(StateIdle, StateStarting, nil)

	if spawnErr != nil {
		s.logger.Error("Failed to start process", "error", spawnErr, "command", spec.String())
		s.markExited()
		s.fail(newError(CodeSpawn, "failed to spawn "+spec.Command, spawnErr))
		return result.wait()
	}

	s.logger.Info("Process started",
		"run_id", s.runID,
		"pid", s.cmd.Process.Pid,
		"command", spec.String(),
		"timeout", spec.StartupTimeout)

	timer := time.AfterFunc(spec.StartupTimeout, func() {
		s.fail(newError(CodeStartupTimeout,
			fmt.Sprintf("readiness marker not seen within %s", spec.StartupTimeout), nil))
	})
	defer timer.Stop()

	detector := readiness.New(s.marker)
	outputDone := make(chan struct{}, 2)
	go func() {
		s.pump(stdout, "stdout", func(chunk []byte) {
			if detector.Feed(chunk) {
				s.markReady()
			}
		})
		outputDone <- struct{}{}
	}()
	go func() {
		s.pump(stderr, "stderr", nil)
		outputDone <- struct{}{}
	}()

	// Wait only after both pipes drained so no output, and no marker, is lost.
	go func() {
		<-outputDone
		<-outputDone
		s.handleExit(s.cmd.Wait())
	}()

	select {
	case <-result.done:
	case <-ctx.Done():
		s.fail(newError(CodeCancelled, "start cancelled", ctx.Err()))
	}
	return result.wait()
}

// spawnLocked creates the pipes and starts the child (must hold lock).
func (s *Supervisor) spawnLocked(spec Spec) (stdout, stderr io.ReadCloser, err error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.SysProcAttr = sysProcAttr()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err = cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err = cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	s.cmd = cmd
	s.stdin = stdin
	return stdout, stderr, nil
}

// markReady is the only success path.
func (s *Supervisor) markReady() {
	if !s.transition(StateReady, nil, StateStarting) {
		return
	}
	s.result.resolve(nil)
	info := s.Info()
	s.logger.Info("Server ready", "run_id", info.RunID, "pid", info.PID, "startup", info.StartupDuration())
}

// fail resolves a pending start with err and releases the child. It is a no-op
// unless the supervisor is still starting, so the first outcome wins.
func (s *Supervisor) fail(err *Error) bool {
	if !s.transition(StateFailed, err, StateStarting) {
		return false
	}
	s.result.resolve(err)
	s.logger.Error("Server failed to start", "error", err)
	s.terminate()
	return true
}

// handleExit records the child's exit status.
func (s *Supervisor) handleExit(waitErr error) {
	code := exitCodeFromError(waitErr)

	s.mu.Lock()
	s.exitCode = code
	state := s.state
	s.mu.Unlock()
	s.markExited()

	s.logger.Info("Process exited", "exit_code", code)

	switch state {
	case StateStarting:
		s.fail(newError(CodeEarlyExit,
			fmt.Sprintf("process exited with code %d before it was ready", code), waitErr))
	case StateReady:
		// Crashed or quit on its own while serving.
		err := fmt.Errorf("process exited unexpectedly with code %d", code)
		s.logger.Error("Server exited while running", "exit_code", code)
		s.transition(StateStopped, err, StateReady)
	}
}

func (s *Supervisor) markExited() {
	s.exitOnce.Do(func() { close(s.exited) })
}

// Stop terminates the child and waits for it to exit. It is idempotent: the
// termination signal is sent at most once and repeated or concurrent calls
// return after the first one finished. A pending Start resolves with ErrStopped.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(s.stop)
}

func (s *Supervisor) stop() {
	s.mu.Lock()
	state := s.state
	cmd := s.cmd
	result := s.result
	if state == StateIdle {
		// Never started; make sure a later Start is refused.
		s.state = StateStopped
	}
	s.mu.Unlock()

	if state == StateIdle {
		s.markExited()
		s.notifyStateChange(StateIdle, StateStopped, nil)
		return
	}

	if state == StateStarting {
		if cmd == nil {
			// Spawn failed under the lock; Start is resolving SPAWN_FAILED.
			result.wait()
		} else {
			s.fail(newError(CodeStopped, "stop requested while starting", nil))
		}
	}

	if cmd == nil {
		s.transition(StateStopped, nil, StateFailed)
		return
	}

	if s.transition(StateStopping, nil, StateReady, StateFailed) {
		s.logger.Info("Stopping server", "pid", cmd.Process.Pid)
	}
	s.terminate()

	select {
	case <-s.exited:
	case <-time.After(s.gracefulTimeout + s.killTimeout):
		s.logger.Error("Process did not exit after kill signal", "pid", cmd.Process.Pid)
	}

	if !s.transition(StateStopped, nil, StateStopping) {
		return
	}
	s.logger.Info("Server stopped")
}

// terminate sends the termination signal once and escalates to a force kill if
// the child outlives the graceful timeout. Delivery errors are logged only.
func (s *Supervisor) terminate() {
	s.signalOnce.Do(func() {
		s.mu.Lock()
		cmd := s.cmd
		stdin := s.stdin
		s.mu.Unlock()

		if cmd == nil || cmd.Process == nil || s.hasExited() {
			return
		}
		if stdin != nil {
			_ = stdin.Close()
		}

		pid := cmd.Process.Pid
		s.logger.Info("Sending termination signal", "pid", pid)
		if err := terminateProcess(cmd.Process); err != nil {
			if errors.Is(err, os.ErrProcessDone) {
				s.logger.Debug("Process already finished", "pid", pid)
			} else {
				s.logger.Warn("Failed to send termination signal", "pid", pid, "error", err)
			}
		}

		go s.escalate(cmd)
	})
}

// escalate force kills the child if it ignores the termination signal.
func (s *Supervisor) escalate(cmd *exec.Cmd) {
	select {
	case <-s.exited:
		return
	case <-time.After(s.gracefulTimeout):
	}

	s.logger.Warn("Graceful shutdown timeout, forcing kill", "pid", cmd.Process.Pid, "timeout", s.gracefulTimeout)
	if err := killProcess(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Error("Failed to kill process", "error", err)
	}
}

func (s *Supervisor) hasExited() bool {
	select {
	case <-s.exited:
		return true
	default:
		return false
	}
}

// transition moves to the new state if the current state is one of allowed
// (any state when allowed is empty) and differs from to.
func (s *Supervisor) transition(to State, err error, allowed ...State) bool {
	s.mu.Lock()
	from := s.state
	if from == to || (len(allowed) > 0 && !slices.Contains(allowed, from)) {
		s.mu.Unlock()
		return false
	}
	s.state = to
	if err != nil {
		s.lastErr = err
	}
	if to == StateReady {
		s.readyAt = time.Now()
	}
	s.mu.Unlock()

	s.notifyStateChange(from, to, err)
	return true
}

// notifyStateChange invokes the OnStateChange callback if configured.
func (s *Supervisor) notifyStateChange(oldState, newState State, err error) {
	s.logger.Debug("State changed", "from", oldState, "to", newState)
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(s.Info(), oldState, newState, err)
	}
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns a snapshot of the supervised process.
func (s *Supervisor) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		RunID:     s.runID,
		State:     s.state,
		StartedAt: s.startedAt,
		ReadyAt:   s.readyAt,
		ExitCode:  s.exitCode,
		Exited:    s.hasExited(),
		LastError: s.lastErr,
	}
	if s.spec.Command != "" {
		info.Command = s.spec.String()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		info.PID = s.cmd.Process.Pid
	}
	return info
}

// Done is closed once the child has exited, or immediately after a spawn
// failure or a Stop without Start.
func (s *Supervisor) Done() <-chan struct{} {
	return s.exited
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
