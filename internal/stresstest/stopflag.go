package stresstest

import "sync/atomic"

// StopFlag is a shared, monotonic failure signal.
// Once signaled it stays signaled; Signal may be called any number of times from any goroutine.
type StopFlag struct {
	signaled atomic.Bool
}

// Signal marks the pipeline as unable to make further progress
func (f *StopFlag) Signal() {
	f.signaled.Store(true)
}

// IsSignaled reports whether any participant has signaled
func (f *StopFlag) IsSignaled() bool {
	return f.signaled.Load()
}
