// Package shell is the desktop surface shown once the backend is ready.
//
// Two implementations exist: Window, a Chrome window driven through lorca,
// and Headless, which only logs where the UI can be reached. Both are thin;
// all lifecycle decisions live in the lifecycle package.
package shell

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/balsim/btransfer-desktop/internal/events"
	"github.com/balsim/btransfer-desktop/internal/health"
	"github.com/balsim/btransfer-desktop/internal/version"
)

// Shell is the user-facing side of the launcher.
type Shell interface {
	// Show presents the UI and blocks until every window is closed or ctx is done.
	Show(ctx context.Context) error
	// Fatal shows a blocking error notice.
	Fatal(title, message string)
	// Close closes any open window so Show returns.
	Close()
}

// UIFile is the page shipped next to the backend script.
const UIFile = "b_transfer_ui.html"

// Window geometry.
const (
	DefaultWidth  = 1200
	DefaultHeight = 800
)

// AboutInfo is the content of the About dialog.
type AboutInfo struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// About returns the About dialog text.
func About() AboutInfo {
	return AboutInfo{
		Title:   "About " + version.ProductName,
		Message: version.String(),
		Detail: "Ultra-fast file transfer with military-grade security\n\n" +
			"Copyright (c) 2025 " + version.Company + "\nAll rights reserved.",
	}
}

// String renders the About text for terminals.
func (a AboutInfo) String() string {
	return a.Message + "\n\n" + a.Detail
}

// StatusText formats a health result the way the Server Status menu shows it.
func StatusText(status *health.Status, err error) string {
	if err != nil || status == nil {
		return "Server not responding"
	}
	return fmt.Sprintf("Server Status: %s\nVersion: %s", status.Status, status.Version)
}

// ServerStatus checks the backend health and returns the text for the user.
// The result is published on bus when one is given.
func ServerStatus(ctx context.Context, client *health.Client, bus *events.Bus) string {
	start := time.Now()
	status, err := client.Check(ctx)

	if bus != nil {
		ev := events.HealthCheckedEvent{
			Seconds:   time.Since(start).Seconds(),
			Timestamp: events.Now(),
		}
		if err != nil {
			ev.Error = err.Error()
		} else {
			ev.Status = status.Status
			ev.Version = status.Version
		}
		bus.Publish(ev)
	}

	return StatusText(status, err)
}

// UIURL returns the address the window loads: the bundled UI page when it
// exists in appRoot, the backend itself otherwise.
func UIURL(appRoot, backendURL string) string {
	page := filepath.Join(appRoot, UIFile)
	if fi, err := os.Stat(page); err == nil && !fi.IsDir() {
		if abs, absErr := filepath.Abs(page); absErr == nil {
			page = abs
		}
		page = filepath.ToSlash(page)
		if !strings.HasPrefix(page, "/") {
			page = "/" + page // C:/... on windows
		}
		return "file://" + page
	}
	return backendURL
}
