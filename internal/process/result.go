package process

import "sync"

// startResult is a single-assignment cell for the outcome of one Start call.
// The first resolve wins; later ones are dropped.
type startResult struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newStartResult() *startResult {
	return &startResult{done: make(chan struct{})}
}

// resolve stores err and releases waiters. Returns false if already resolved.
func (r *startResult) resolve(err error) bool {
	resolved := false
	r.once.Do(func() {
		r.err = err
		close(r.done)
		resolved = true
	})
	return resolved
}

// wait blocks until resolved.
func (r *startResult) wait() error {
	<-r.done
	return r.err
}
