package shell

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/balsim/btransfer-desktop/internal/logging"
)

// Headless is a shell without a window. It prints where the UI is served and
// waits for shutdown.
type Headless struct {
	URL    string
	Out    io.Writer // notices, defaults to stdout
	Err    io.Writer // fatal messages, defaults to stderr
	Logger *slog.Logger

	once      sync.Once
	closeOnce sync.Once
	closed    chan struct{}
}

var _ Shell = (*Headless)(nil)

// NewHeadless creates a headless shell for url.
func NewHeadless(url string) *Headless {
	return &Headless{URL: url}
}

func (h *Headless) init() {
	h.once.Do(func() {
		h.closed = make(chan struct{})
		if h.Out == nil {
			h.Out = os.Stdout
		}
		if h.Err == nil {
			h.Err = os.Stderr
		}
		if h.Logger == nil {
			h.Logger = logging.GetLogger(logging.ModuleShell)
		}
	})
}

// Show blocks until ctx is done or Close is called.
func (h *Headless) Show(ctx context.Context) error {
	h.init()
	about := About()
	h.Logger.Info("Running without a window", "version", about.Message, "url", h.URL)
	fmt.Fprintf(h.Out, "%s is running. Open %s in a browser.\n", about.Message, h.URL)

	select {
	case <-ctx.Done():
	case <-h.closed:
	}
	return nil
}

// Fatal writes the notice to stderr.
func (h *Headless) Fatal(title, message string) {
	h.init()
	h.Logger.Error(message, "title", title)
	fmt.Fprintf(h.Err, "%s: %s\n", title, message)
}

// Close makes Show return. Safe to call more than once.
func (h *Headless) Close() {
	h.init()
	h.closeOnce.Do(func() { close(h.closed) })
}
