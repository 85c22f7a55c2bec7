package main

import (
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		idTimeout:  30 * time.Second,
		heartbeat:  30 * time.Second,
		maxBuzzers: 10,
		buzzWindow: 200 * time.Millisecond,
	}
}

func TestAcceptArmsIdentificationTimer(t *testing.T) {
	sched := newFakeScheduler()
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), sched)
	conn := &fakeConn{}

	r.accept(conn)

	if sched.count() != 1 {
		t.Fatalf("expected 1 armed timer, got %d", sched.count())
	}
}

func TestExpireIdentificationClosesUnidentifiedPeer(t *testing.T) {
	sched := newFakeScheduler()
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), sched)
	conn := &fakeConn{}
	r.accept(conn)

	sched.fireLast()

	if !conn.closed {
		t.Fatalf("expected connection to be closed after identification timeout")
	}
	if conn.closeCode != closeIdentificationTimeout {
		t.Errorf("close code: got %d, want %d", conn.closeCode, closeIdentificationTimeout)
	}
}

func TestExpireIdentificationNoOpAfterIdentified(t *testing.T) {
	sched := newFakeScheduler()
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), sched)
	conn := &fakeConn{}
	p := r.accept(conn)
	r.identifyConsole(p)

	// Run the identification expiry directly: identifyConsole stopped the
	// identification timer and armed the heartbeat, so fireLast would run
	// the heartbeat instead.
	r.expireIdentification(p)

	if conn.closed {
		t.Fatalf("identified peer must not be closed by the identification timer")
	}
}

func TestIdentifyConsoleSendsConnectedAndBuzzerList(t *testing.T) {
	sched := newFakeScheduler()
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), sched)
	conn := &fakeConn{}
	p := r.accept(conn)

	r.identifyConsole(p)

	if conn.count() != 2 {
		t.Fatalf("expected 2 envelopes (CONNECTED, BUZZER_LIST_UPDATE), got %d", conn.count())
	}
	if conn.envelopes[0].Type != typeConnected {
		t.Errorf("first message: got %q, want %q", conn.envelopes[0].Type, typeConnected)
	}
	if conn.envelopes[1].Type != typeBuzzerListUpdate {
		t.Errorf("second message: got %q, want %q", conn.envelopes[1].Type, typeBuzzerListUpdate)
	}
	if r.consolePeer() != p {
		t.Errorf("expected console peer to be registered")
	}
}

func TestIdentifyBuzzerAcksAndNotifiesConsole(t *testing.T) {
	sched := newFakeScheduler()
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), sched)

	consoleConn := &fakeConn{}
	console := r.accept(consoleConn)
	r.identifyConsole(console)

	buzzerConn := &fakeConn{}
	buzzer := r.accept(buzzerConn)
	r.identifyBuzzer(buzzer, buzzerRegisterPayload{BuzzerID: "b1", MacAddress: "aa:bb"})

	if buzzerConn.count() != 1 || buzzerConn.envelopes[0].Type != typeConnectionAck {
		t.Fatalf("expected buzzer to receive CONNECTION_ACK, got %+v", buzzerConn.envelopes)
	}

	last := consoleConn.last()
	if last.Type != typeBuzzerConnected {
		t.Errorf("expected console to be notified of BUZZER_CONNECTED, got %q", last.Type)
	}

	got, ok := r.buzzerPeer("b1")
	if !ok || got == nil {
		t.Fatalf("expected buzzer b1 to be registered")
	}
	if r.totalBuzzers() != 1 {
		t.Errorf("totalBuzzers: got %d, want 1", r.totalBuzzers())
	}
}

func TestIdentifyBuzzerRejectsDuplicateID(t *testing.T) {
	sched := newFakeScheduler()
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), sched)

	firstConn := &fakeConn{}
	first := r.accept(firstConn)
	r.identifyBuzzer(first, buzzerRegisterPayload{BuzzerID: "dup"})

	secondConn := &fakeConn{}
	second := r.accept(secondConn)
	r.identifyBuzzer(second, buzzerRegisterPayload{BuzzerID: "dup"})

	last := secondConn.last()
	if last.Type != typeConnectionRejected {
		t.Fatalf("expected CONNECTION_REJECTED, got %q", last.Type)
	}
	if !secondConn.closed || secondConn.closeCode != closeDuplicateBuzzer {
		t.Errorf("expected second connection closed with code %d, got closed=%v code=%d",
			closeDuplicateBuzzer, secondConn.closed, secondConn.closeCode)
	}
	if r.totalBuzzers() != 1 {
		t.Errorf("totalBuzzers: got %d, want 1", r.totalBuzzers())
	}
}

func TestBeatRemovesDeadPeer(t *testing.T) {
	sched := newFakeScheduler()
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), sched)
	conn := &fakeConn{}
	p := r.accept(conn)
	r.identifyBuzzer(p, buzzerRegisterPayload{BuzzerID: "b1"})

	p.mu.Lock()
	p.alive = false
	p.mu.Unlock()

	r.beat(p)

	if !conn.closed {
		t.Fatalf("expected dead peer to be closed by heartbeat")
	}
	if _, ok := r.buzzerPeer("b1"); ok {
		t.Fatalf("expected dead peer to be removed from registry")
	}
}

func TestBeatPingsLivePeer(t *testing.T) {
	sched := newFakeScheduler()
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), sched)
	conn := &fakeConn{}
	p := r.accept(conn)
	r.identifyBuzzer(p, buzzerRegisterPayload{BuzzerID: "b1"})

	r.beat(p)

	if conn.closed {
		t.Fatalf("live peer must not be closed by heartbeat")
	}
	last := conn.last()
	if last.Type != typePing {
		t.Errorf("expected PING sent to live peer, got %q", last.Type)
	}
}

func TestRemoveNotifiesConsoleOfBuzzerDisconnect(t *testing.T) {
	sched := newFakeScheduler()
	r := newConnectionRegistry(testConfig(), newFakeClock(time.Now()), sched)

	consoleConn := &fakeConn{}
	console := r.accept(consoleConn)
	r.identifyConsole(console)

	buzzerConn := &fakeConn{}
	buzzer := r.accept(buzzerConn)
	r.identifyBuzzer(buzzer, buzzerRegisterPayload{BuzzerID: "b1"})

	r.remove(buzzer)

	last := consoleConn.last()
	if last.Type != typeBuzzerDisconnected {
		t.Errorf("expected BUZZER_DISCONNECTED, got %q", last.Type)
	}
	if _, ok := r.buzzerPeer("b1"); ok {
		t.Errorf("expected buzzer removed from registry")
	}
}
