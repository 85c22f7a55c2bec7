package main

import (
	"testing"
	"time"
)

func TestBroadcasterToConsoleDropsWhenNoneConnected(t *testing.T) {
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), newFakeScheduler())
	b := newBroadcaster(testConfig(), r, newFakeClock(time.Now()))

	// Must not panic with no console connected.
	b.ToConsole(typeError, errorPayload{Message: "no one is listening"})
}

func TestBroadcasterToAllBuzzersFansOut(t *testing.T) {
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), newFakeScheduler())
	conn1, conn2 := &fakeConn{}, &fakeConn{}
	p1 := r.accept(conn1)
	r.identifyBuzzer(p1, buzzerRegisterPayload{BuzzerID: "B1"})
	p2 := r.accept(conn2)
	r.identifyBuzzer(p2, buzzerRegisterPayload{BuzzerID: "B2"})

	b := newBroadcaster(testConfig(), r, newFakeClock(time.Now()))
	b.ToAllBuzzers(typeGameStarted, gameStartedPayload{GameID: "g1"})

	if conn1.count() != 1 || conn1.last().Type != typeGameStarted {
		t.Errorf("B1 did not receive the broadcast: %+v", conn1.envelopes)
	}
	if conn2.count() != 1 || conn2.last().Type != typeGameStarted {
		t.Errorf("B2 did not receive the broadcast: %+v", conn2.envelopes)
	}
}

func TestBroadcasterAllBuzzerIDs(t *testing.T) {
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), newFakeScheduler())
	p1 := r.accept(&fakeConn{})
	r.identifyBuzzer(p1, buzzerRegisterPayload{BuzzerID: "B1"})
	p2 := r.accept(&fakeConn{})
	r.identifyBuzzer(p2, buzzerRegisterPayload{BuzzerID: "B2"})

	b := newBroadcaster(testConfig(), r, newFakeClock(time.Now()))
	ids := b.AllBuzzerIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 buzzer ids, got %v", ids)
	}
}

func TestBroadcasterBinaryToBuzzerUnknownReturnsFalse(t *testing.T) {
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), newFakeScheduler())
	b := newBroadcaster(testConfig(), r, newFakeClock(time.Now()))

	if b.BinaryToBuzzer("ghost", []byte{1, 2, 3}) {
		t.Fatalf("expected BinaryToBuzzer to report false for an unknown buzzer")
	}
}
