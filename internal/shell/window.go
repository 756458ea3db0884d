package shell

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/balsim/btransfer-desktop/internal/events"
	"github.com/balsim/btransfer-desktop/internal/health"
	"github.com/balsim/btransfer-desktop/internal/logging"
	"github.com/balsim/btransfer-desktop/internal/version"
	"github.com/zserge/lorca"
)

// fatalDialogTimeout bounds how long a fatal notice stays open.
const fatalDialogTimeout = 2 * time.Minute

// WindowOptions configures a Window.
type WindowOptions struct {
	URL        string
	Width      int
	Height     int
	ProfileDir string   // Chrome user data dir, empty = temporary
	ChromeArgs []string // extra Chrome flags

	Health *health.Client
	Bus    *events.Bus
	OnQuit func()
	Logger *slog.Logger
}

// Window is a Chrome app window controlled over the DevTools protocol.
type Window struct {
	opts   WindowOptions
	logger *slog.Logger

	mu sync.Mutex
	ui lorca.UI
}

var _ Shell = (*Window)(nil)

// NewWindow creates a window shell. Nothing is opened until Show.
func NewWindow(opts WindowOptions) *Window {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Health == nil {
		opts.Health = health.NewClient(health.DefaultURL, 0)
	}
	if opts.URL == "" {
		opts.URL = opts.Health.URL()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger(logging.ModuleShell)
	}
	return &Window{opts: opts, logger: logger}
}

// Show opens the window and blocks until the user closes it or ctx is done.
// It fails when no Chrome or Chromium installation can be found.
func (w *Window) Show(ctx context.Context) error {
	ui, err := lorca.New(w.opts.URL, w.opts.ProfileDir, w.opts.Width, w.opts.Height, w.opts.ChromeArgs...)
	if err != nil {
		return fmt.Errorf("failed to open window: %w", err)
	}

	w.mu.Lock()
	w.ui = ui
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.ui = nil
		w.mu.Unlock()
		_ = ui.Close()
	}()

	if err := w.bind(ui); err != nil {
		return err
	}
	if err := ui.Eval("document.title = " + strconv.Quote(version.Title())).Err(); err != nil {
		w.logger.Debug("Failed to set window title", "error", err)
	}

	w.logger.Info("Window opened", "url", w.opts.URL, "width", w.opts.Width, "height", w.opts.Height)

	select {
	case <-ui.Done():
		w.logger.Info("Window closed")
	case <-ctx.Done():
	}
	return nil
}

// bind exposes the menu actions to the page.
func (w *Window) bind(ui lorca.UI) error {
	bindings := map[string]any{
		"serverStatus": func() string {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return ServerStatus(ctx, w.opts.Health, w.opts.Bus)
		},
		"about": func() AboutInfo {
			return About()
		},
		"reloadUI": func() error {
			return ui.Load(w.opts.URL)
		},
		"recentLogs": func(n int) []string {
			return logging.Recent(n)
		},
		"quitApp": func() {
			if w.opts.OnQuit != nil {
				go w.opts.OnQuit()
				return
			}
			_ = ui.Close()
		},
	}

	for name, fn := range bindings {
		if err := ui.Bind(name, fn); err != nil {
			return fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}
	return nil
}

// Fatal shows a small error window and blocks until it is dismissed. Without
// Chrome the message goes to stderr.
func (w *Window) Fatal(title, message string) {
	w.logger.Error(message, "title", title)

	page := "data:text/html," + url.PathEscape(fatalPage(title, message))
	ui, err := lorca.New(page, "", 520, 240, w.opts.ChromeArgs...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", title, message)
		return
	}
	defer ui.Close()

	if err := ui.Bind("dismiss", func() { _ = ui.Close() }); err != nil {
		w.logger.Debug("Failed to bind dismiss", "error", err)
	}

	select {
	case <-ui.Done():
	case <-time.After(fatalDialogTimeout):
	}
}

// Close closes the main window if it is open.
func (w *Window) Close() {
	w.mu.Lock()
	ui := w.ui
	w.mu.Unlock()
	if ui != nil {
		_ = ui.Close()
	}
}

func fatalPage(title, message string) string {
	t, m := html.EscapeString(title), html.EscapeString(message)
	return `<!doctype html><html><head><meta charset="utf-8"><title>` + t + `</title>
<style>body{font-family:system-ui,sans-serif;margin:24px}h1{font-size:18px;color:#b00020}button{margin-top:16px}</style>
</head><body><h1>` + t + `</h1><p>` + m + `</p><button onclick="dismiss()">OK</button></body></html>`
}
