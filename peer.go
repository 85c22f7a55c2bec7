package main

import (
	"sync"
	"time"
)

type peerClass int

const (
	peerUnidentified peerClass = iota
	peerConsole
	peerBuzzer
)

// transportConn is the minimal surface the core needs from a live
// connection. The websocket implementation lives in transport.go; tests
// substitute a fake that records what was sent.
type transportConn interface {
	sendEnvelope(env envelope) error
	sendBinary(b []byte) error
	close(code int, reason string) error
	remoteAddr() string
}

// Peer is one connected transport, pre- or post-identification.
type Peer struct {
	mu sync.Mutex

	conn  transportConn
	class peerClass

	identified bool
	alive      bool
	lastPong   time.Time

	// Buzzer-only fields.
	buzzerID     string
	name         string
	macAddress   string
	battery      int
	wifiRSSI     int
	latency      int64
	connectedAt  time.Time
	playerNumber int

	idTimer        Timer
	heartbeatTimer Timer
}

func newPeer(conn transportConn) *Peer {
	return &Peer{
		conn:  conn,
		class: peerUnidentified,
		alive: true,
	}
}

func (p *Peer) send(env envelope) error {
	return p.conn.sendEnvelope(env)
}

func (p *Peer) summary(c Clock) buzzerSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	return buzzerSummary{
		ID:          p.buzzerID,
		Name:        p.name,
		ConnectedAt: p.connectedAt.UnixMilli(),
		Battery:     p.battery,
		WifiRSSI:    p.wifiRSSI,
		Latency:     p.latency,
		Connected:   true,
	}
}

func (p *Peer) markAlive() {
	p.mu.Lock()
	p.alive = true
	p.lastPong = time.Now()
	p.mu.Unlock()
}

// checkAndClearAlive reports whether the peer was alive since the last
// heartbeat, then clears the flag for the next period.
func (p *Peer) checkAndClearAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	was := p.alive
	p.alive = false
	return was
}
