// Package lifecycle starts the backend, shows the shell once it is ready and
// makes sure every way the application ends stops the backend exactly once.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/balsim/btransfer-desktop/internal/events"
	"github.com/balsim/btransfer-desktop/internal/logging"
	"github.com/balsim/btransfer-desktop/internal/process"
	"github.com/balsim/btransfer-desktop/internal/shell"
)

// Text of the notice shown when the backend cannot be started.
const (
	FatalTitle   = "Server Error"
	FatalMessage = "Failed to start B-Transfer server. Please check if Python is installed."
)

// Shutdown reasons carried by ShutdownRequestedEvent.
const (
	ReasonWindowAllClosed = "window-all-closed"
	ReasonBeforeQuit      = "before-quit"
	ReasonQuit            = "quit"
	ReasonSignal          = "signal"
	ReasonStartupFailed   = "startup-failed"
	ReasonExit            = "exit"
)

// ErrStartupFailed is returned by Run when the backend never became ready.
var ErrStartupFailed = errors.New("failed to start B-Transfer server")

// Supervisor is the part of *process.Supervisor the controller drives.
type Supervisor interface {
	Start(ctx context.Context, spec process.Spec) error
	Stop()
}

// Options configures a Controller.
type Options struct {
	Supervisor Supervisor
	Shell      shell.Shell
	Spec       process.Spec
	Bus        *events.Bus  // optional
	Logger     *slog.Logger // defaults to the lifecycle module logger
	GOOS       string       // defaults to runtime.GOOS
}

// Controller owns the application lifecycle.
type Controller struct {
	opts   Options
	logger *slog.Logger
	goos   string

	quit     chan struct{}
	quitOnce sync.Once
	activate chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	ready   bool
	showing bool
}

// New creates a controller.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger(logging.ModuleLifecycle)
	}
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	return &Controller{
		opts:     opts,
		logger:   logger,
		goos:     goos,
		quit:     make(chan struct{}),
		activate: make(chan struct{}, 1),
	}
}

// Run starts the backend and, once it is ready, shows the shell until the
// application quits. When the backend does not become ready the fatal notice
// is shown and ErrStartupFailed is returned. The backend is always stopped
// before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	stopActivate := c.notifyActivate()
	defer stopActivate()

	defer c.shutdown(ReasonExit)

	c.logger.Info("Starting B-Transfer server...", "command", c.opts.Spec.String(), "dir", c.opts.Spec.Dir)
	if err := c.opts.Supervisor.Start(ctx, c.opts.Spec); err != nil {
		if c.quitRequested() || ctx.Err() != nil {
			c.logger.Info("Startup interrupted", "reason", process.CodeOf(err))
			c.shutdown(ReasonSignal)
			return nil
		}
		c.logger.Error("Failed to start server", "error", err)
		c.opts.Shell.Fatal(FatalTitle, FatalMessage)
		c.shutdown(ReasonStartupFailed)
		return fmt.Errorf("%w: %w", ErrStartupFailed, err)
	}
	c.logger.Info("Server started successfully")

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()

	for {
		if err := c.show(ctx); err != nil {
			c.logger.Error("Failed to show window", "error", err)
			c.shutdown(ReasonExit)
			return fmt.Errorf("shell: %w", err)
		}
		if ctx.Err() != nil || c.quitRequested() {
			break
		}

		c.WindowAllClosed()
		select {
		case <-ctx.Done():
		case <-c.activate:
			c.logger.Info("Reopening window")
			continue
		}
		break
	}

	reason := ReasonQuit
	if !c.quitRequested() {
		reason = ReasonSignal
	}
	c.shutdown(reason)
	return nil
}

func (c *Controller) show(ctx context.Context) error {
	c.mu.Lock()
	c.showing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.showing = false
		c.mu.Unlock()
	}()
	return c.opts.Shell.Show(ctx)
}

// WindowAllClosed handles the last window closing: the application quits,
// except on macOS where it keeps running until Quit or Activate.
func (c *Controller) WindowAllClosed() {
	if c.goos == "darwin" {
		c.logger.Debug("All windows closed, staying in the dock")
		return
	}
	c.requestQuit(ReasonWindowAllClosed)
}

// BeforeQuit stops the backend ahead of the application exiting.
func (c *Controller) BeforeQuit() {
	c.requestQuit(ReasonBeforeQuit)
}

// Quit ends the application.
func (c *Controller) Quit() {
	c.requestQuit(ReasonQuit)
}

// Activate reopens the window on macOS when none is open.
func (c *Controller) Activate() {
	if c.goos != "darwin" {
		return
	}
	c.mu.Lock()
	reopen := c.ready && !c.showing
	c.mu.Unlock()
	if !reopen || c.quitRequested() {
		return
	}
	select {
	case c.activate <- struct{}{}:
	default:
	}
}

// requestQuit makes Run return and stops the backend.
func (c *Controller) requestQuit(reason string) {
	c.quitOnce.Do(func() {
		c.logger.Info("Quit requested", "reason", reason)
		close(c.quit)
	})
	c.shutdown(reason)
}

func (c *Controller) quitRequested() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

// shutdown closes the shell and stops the backend once; concurrent callers
// wait until the backend is gone.
func (c *Controller) shutdown(reason string) {
	c.stopOnce.Do(func() {
		if c.opts.Bus != nil {
			c.opts.Bus.Publish(events.ShutdownRequestedEvent{Reason: reason, Timestamp: events.Now()})
		}
		c.logger.Info("Stopping server...", "reason", reason)
		c.opts.Shell.Close()
		c.opts.Supervisor.Stop()
	})
}
