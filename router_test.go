package main

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestRouter() (*Router, *ConnectionRegistry, *fakeScheduler) {
	cfg := testConfig()
	sched := newFakeScheduler()
	clock := newFakeClock(time.UnixMilli(0))
	registry := newConnectionRegistry(cfg, clock, sched)
	notifier := newBroadcaster(cfg, registry, clock)
	questions := newFakeQuestions()
	questions.put(Question{GameID: "g1", ID: "42", Type: "BUZZER"})
	games := newGameManager(cfg, notifier, questions, newFakeResults(), clock, sched)
	router := newRouter(cfg, registry, games, newFakeJingles(), clock)
	return router, registry, sched
}

func envelopeBytes(t *testing.T, typ string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	env := envelope{Type: typ, Payload: raw}
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return b
}

func TestRouterIdentifiesConsoleViaDispatch(t *testing.T) {
	router, registry, _ := newTestRouter()
	conn := &fakeConn{}
	p := registry.accept(conn)

	router.dispatch(p, envelopeBytes(t, typeAngularConnect, connectPayload{}))

	if registry.consolePeer() != p {
		t.Fatalf("expected console to be identified via dispatch")
	}
}

func TestRouterDispatchesQuestionSendToGame(t *testing.T) {
	router, registry, _ := newTestRouter()
	consoleConn := &fakeConn{}
	console := registry.accept(consoleConn)
	router.dispatch(console, envelopeBytes(t, typeAngularConnect, connectPayload{}))

	buzzerConn := &fakeConn{}
	buzzer := registry.accept(buzzerConn)
	router.dispatch(buzzer, envelopeBytes(t, typeBuzzerRegister, buzzerRegisterPayload{BuzzerID: "B1"}))

	router.dispatch(console, envelopeBytes(t, typeQuestionSend, questionSendPayload{GameID: "g1", QuestionID: "42"}))

	found := false
	for _, env := range buzzerConn.envelopes {
		if env.Type == typeQuestionStart {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected QUESTION_START delivered to the buzzer, got %+v", buzzerConn.envelopes)
	}
}

func TestRouterIgnoresUnknownMessageType(t *testing.T) {
	router, registry, _ := newTestRouter()
	conn := &fakeConn{}
	p := registry.accept(conn)
	router.dispatch(p, envelopeBytes(t, typeAngularConnect, connectPayload{}))

	// Must not panic and must not produce any extra outbound message.
	before := conn.count()
	router.dispatch(p, envelopeBytes(t, "NOT_A_REAL_TYPE", struct{}{}))
	if conn.count() != before {
		t.Errorf("expected unknown message type to be dropped silently")
	}
}

func TestRouterMalformedEnvelopeDoesNotPanic(t *testing.T) {
	router, registry, _ := newTestRouter()
	conn := &fakeConn{}
	p := registry.accept(conn)

	router.dispatch(p, []byte(`{not json`))
}
