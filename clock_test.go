package main

import (
	"testing"
	"time"
)

func TestTimeSyncResponseEchoesT1(t *testing.T) {
	c := newFakeClock(time.UnixMilli(1_000))
	res := timeSyncResponse(c, 42)
	if res.T1 != 42 {
		t.Errorf("T1: got %d, want 42", res.T1)
	}
	if res.T2 != 1_000 || res.T3 != 1_000 {
		t.Errorf("T2/T3: got %d/%d, want 1000/1000", res.T2, res.T3)
	}
}

func TestPongResponseEchoesTSend(t *testing.T) {
	c := newFakeClock(time.UnixMilli(5_000))
	res := pongResponse(c, 77)
	if res.TSend != 77 {
		t.Errorf("T_send: got %d, want 77", res.TSend)
	}
	if res.TReceive != 5_000 {
		t.Errorf("T_receive: got %d, want 5000", res.TReceive)
	}
}

func TestNowMillis(t *testing.T) {
	c := newFakeClock(time.UnixMilli(123))
	if got := nowMillis(c); got != 123 {
		t.Errorf("nowMillis: got %d, want 123", got)
	}
}
