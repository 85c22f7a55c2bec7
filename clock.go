package main

import "time"

// Clock returns monotonic wall-time for timestamping protocol messages.
// Injected at construction so tests can control the passage of time
// without sleeping.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func nowMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}

// timeSyncResponse answers a TIME_SYNC_REQ: T1 is echoed back unchanged, T2
// is the server receive time, T3 is the server send time (both taken from
// the same clock, sampled at the two call sites that produce them).
func timeSyncResponse(c Clock, t1 int64) timeSyncResPayload {
	t2 := nowMillis(c)
	t3 := nowMillis(c)
	return timeSyncResPayload{T1: t1, T2: t2, T3: t3}
}

func pongResponse(c Clock, tSend int64) pongPayload {
	return pongPayload{TSend: tSend, TReceive: nowMillis(c)}
}
