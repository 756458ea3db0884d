// Package readiness detects when a child process announces that it can serve requests.
//
// A Detector is fed raw output chunks as they arrive from a pipe. Chunks are not
// line aligned, so the detector keeps a short tail of previous output and finds
// the marker even when it is split across several reads.
package readiness

import (
	"bytes"
	"sync"
)

// Marker is printed by the B-Transfer server once its HTTP listener is up.
const Marker = "Access from this computer: http://localhost:8081"

// Detector reports the transition to ready exactly once.
type Detector struct {
	marker []byte
	window []byte // last len(marker)-1 bytes of output seen so far
	ready  bool
	mu     sync.Mutex
}

// New creates a detector for the given marker.
func New(marker string) *Detector {
	return &Detector{
		marker: []byte(marker),
		window: make([]byte, 0, 2*len(marker)),
	}
}

// Feed appends a chunk of output and returns true only on the call that made the
// marker visible. After that it always returns false.
func (d *Detector) Feed(chunk []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ready {
		return false
	}

	d.window = append(d.window, chunk...)
	if bytes.Contains(d.window, d.marker) {
		d.ready = true
		d.window = nil
		return true
	}

	// Keep only what could still be the start of a marker split across chunks.
	keep := len(d.marker) - 1
	if keep < 0 {
		keep = 0
	}
	if len(d.window) > keep {
		n := copy(d.window, d.window[len(d.window)-keep:])
		d.window = d.window[:n]
	}
	return false
}

// Ready reports whether the marker has been observed.
func (d *Detector) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

// Pending returns a copy of the buffered tail that has not matched yet.
func (d *Detector) Pending() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.window...)
}
