//go:build !windows

package lifecycle

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyActivate reopens the window on SIGUSR1, the dock's "reopen" for a
// launcher that has no native app delegate.
func (c *Controller) notifyActivate() func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				c.Activate()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
