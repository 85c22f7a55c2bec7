package main

import "time"

// Timer is a cancellable, idempotent single-shot timer handle.
type Timer interface {
	// Stop cancels the timer. Safe to call more than once; returns false
	// if the timer had already fired or already been stopped.
	Stop() bool
}

// Scheduler arms one-shot callbacks. Implementations must be safe for
// concurrent use. Injected at construction so the 200 ms buzz
// window, the 30 s identification timeout, and the 30 s heartbeat period
// can be driven deterministically in tests.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func newRealScheduler() Scheduler { return realScheduler{} }

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Stop() bool { return r.t.Stop() }

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}
