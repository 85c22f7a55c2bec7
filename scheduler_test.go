package main

import (
	"testing"
	"time"
)

func TestFakeSchedulerArmsAndFires(t *testing.T) {
	s := newFakeScheduler()
	fired := false
	s.AfterFunc(200*time.Millisecond, func() { fired = true })

	if s.count() != 1 {
		t.Fatalf("expected 1 armed call, got %d", s.count())
	}
	if fired {
		t.Fatalf("callback fired before fireLast was called")
	}
	s.fireLast()
	if !fired {
		t.Fatalf("expected callback to run after fireLast")
	}
}

func TestFakeTimerStopPreventsFire(t *testing.T) {
	s := newFakeScheduler()
	fired := false
	timer := s.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatalf("first Stop() should return true")
	}
	if timer.Stop() {
		t.Fatalf("second Stop() should return false")
	}
	s.fireLast()
	if fired {
		t.Fatalf("callback must not run once its timer is stopped")
	}
}

func TestRealSchedulerFires(t *testing.T) {
	done := make(chan struct{})
	sched := newRealScheduler()
	sched.AfterFunc(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real scheduler did not fire within timeout")
	}
}
