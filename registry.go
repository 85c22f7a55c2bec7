package main

import (
	"fmt"
	"sync"
)

// ConnectionRegistry tracks the two peer classes: at most one Console, and
// a map of Buzzer peers keyed by buzzerID. One registry-wide
// lock guards the peer map; it is never held across a transport write or
// a file read.
type ConnectionRegistry struct {
	mu sync.RWMutex

	console *Peer
	buzzers map[string]*Peer

	cfg       *Config
	clock     Clock
	scheduler Scheduler
}

func newConnectionRegistry(cfg *Config, clock Clock, scheduler Scheduler) *ConnectionRegistry {
	return &ConnectionRegistry{
		buzzers:   make(map[string]*Peer),
		cfg:       cfg,
		clock:     clock,
		scheduler: scheduler,
	}
}

// accept arms the 30s identification timer for a freshly-accepted transport
//.
func (r *ConnectionRegistry) accept(conn transportConn) *Peer {
	p := newPeer(conn)
	p.idTimer = r.scheduler.AfterFunc(r.cfg.idTimeout, func() {
		r.expireIdentification(p)
	})
	return p
}

func (r *ConnectionRegistry) expireIdentification(p *Peer) {
	p.mu.Lock()
	already := p.identified
	p.mu.Unlock()
	if already {
		return
	}
	_ = p.conn.close(closeIdentificationTimeout, "identification timeout")
}

// handlePreIdentification processes the four message kinds a not-yet-
// identified transport may send. Anything else is dropped.
func (r *ConnectionRegistry) handlePreIdentification(p *Peer, env envelope, parsed any) {
	switch env.Type {
	case typeTimeSyncReq:
		req, _ := parsed.(timeSyncReqPayload)
		r.replyTimeSync(p, req)
	case typePing:
		ping, _ := parsed.(pingPayload)
		r.replyPong(p, ping)
	case typeAngularConnect:
		r.identifyConsole(p)
	case typeBuzzerRegister:
		reg, _ := parsed.(buzzerRegisterPayload)
		r.identifyBuzzer(p, reg)
	default:
		logf(r.cfg, "REGISTRY: dropped %q from unidentified peer %s", env.Type, p.conn.remoteAddr())
	}
}

func (r *ConnectionRegistry) replyTimeSync(p *Peer, req timeSyncReqPayload) {
	res := timeSyncResponse(r.clock, req.T1)
	sendPayload(p, typeTimeSyncRes, senderServer, res, r.clock)
}

func (r *ConnectionRegistry) replyPong(p *Peer, ping pingPayload) {
	res := pongResponse(r.clock, ping.TSend)
	sendPayload(p, typePong, senderServer, res, r.clock)
}

func (r *ConnectionRegistry) identifyConsole(p *Peer) {
	r.mu.Lock()
	prior := r.console
	p.mu.Lock()
	p.class = peerConsole
	p.identified = true
	if p.idTimer != nil {
		p.idTimer.Stop()
	}
	p.mu.Unlock()
	r.console = p
	r.armHeartbeat(p)
	list := r.buzzerListPayloadLocked(len(r.buzzers))
	r.mu.Unlock()

	if prior != nil && prior != p {
		logf(r.cfg, "REGISTRY: replacing prior console connection (last-writer wins)")
	}

	sendPayload(p, typeConnected, senderServer, connectedPayload{
		SessionID:  newSessionID(),
		ServerTime: nowMillis(r.clock),
		Config:     connectedCfg{MaxBuzzers: r.cfg.maxBuzzers, Version: releaseVersion},
	}, r.clock)

	sendPayload(p, typeBuzzerListUpdate, senderServer, list, r.clock)
}

func (r *ConnectionRegistry) identifyBuzzer(p *Peer, reg buzzerRegisterPayload) {
	r.mu.Lock()
	if _, exists := r.buzzers[reg.BuzzerID]; exists {
		r.mu.Unlock()
		sendPayload(p, typeConnectionRejected, senderServer, connectionRejectedPayload{
			Reason: "duplicate buzzerID",
		}, r.clock)
		_ = p.conn.close(closeDuplicateBuzzer, "duplicate buzzer id")
		return
	}

	p.mu.Lock()
	p.class = peerBuzzer
	p.identified = true
	p.buzzerID = reg.BuzzerID
	p.macAddress = reg.MacAddress
	p.name = reg.BuzzerID
	p.connectedAt = r.clock.Now()
	p.playerNumber = len(r.buzzers) + 1
	if p.idTimer != nil {
		p.idTimer.Stop()
	}
	p.mu.Unlock()

	r.buzzers[reg.BuzzerID] = p
	r.armHeartbeat(p)
	total := len(r.buzzers)
	console := r.console
	r.mu.Unlock()

	sendPayload(p, typeConnectionAck, senderServer, connectionAckPayload{
		BuzzerID:     reg.BuzzerID,
		PlayerNumber: p.playerNumber,
	}, r.clock)

	if console != nil {
		sendPayload(console, typeBuzzerConnected, senderServer, buzzerConnEventPayload{
			Buzzer:       p.summary(r.clock),
			TotalBuzzers: total,
		}, r.clock)
	}
}

func (r *ConnectionRegistry) armHeartbeat(p *Peer) {
	p.mu.Lock()
	p.alive = true
	p.mu.Unlock()
	p.heartbeatTimer = r.scheduler.AfterFunc(r.cfg.heartbeat, func() {
		r.beat(p)
	})
}

// beat fires every heartbeat period for an identified peer:
// a peer that hasn't proven liveness since the last beat is terminated,
// otherwise the flag is cleared and a ping is sent.
func (r *ConnectionRegistry) beat(p *Peer) {
	if !p.checkAndClearAlive() {
		r.remove(p)
		_ = p.conn.close(closeAdminDisconnect, "heartbeat timeout")
		return
	}
	sendPayload(p, typePing, senderServer, pingPayload{TSend: nowMillis(r.clock)}, r.clock)
	p.heartbeatTimer = r.scheduler.AfterFunc(r.cfg.heartbeat, func() {
		r.beat(p)
	})
}

// remove detaches a peer from the registry and announces the departure
//.
func (r *ConnectionRegistry) remove(p *Peer) {
	p.mu.Lock()
	class := p.class
	buzzerID := p.buzzerID
	if p.idTimer != nil {
		p.idTimer.Stop()
	}
	if p.heartbeatTimer != nil {
		p.heartbeatTimer.Stop()
	}
	p.mu.Unlock()

	r.mu.Lock()
	switch class {
	case peerConsole:
		if r.console == p {
			r.console = nil
		}
		r.mu.Unlock()
	case peerBuzzer:
		delete(r.buzzers, buzzerID)
		total := len(r.buzzers)
		console := r.console
		r.mu.Unlock()
		if console != nil {
			sendPayload(console, typeBuzzerDisconnected, senderServer, buzzerConnEventPayload{
				Buzzer:       buzzerSummary{ID: buzzerID, Connected: false},
				TotalBuzzers: total,
			}, r.clock)
		}
	default:
		r.mu.Unlock()
	}
}

func (r *ConnectionRegistry) buzzerListPayloadLocked(total int) buzzerListUpdatePayload {
	out := make([]buzzerSummary, 0, total)
	for _, b := range r.buzzers {
		out = append(out, b.summary(r.clock))
	}
	return buzzerListUpdatePayload{Buzzers: out, Total: total}
}

func (r *ConnectionRegistry) buzzerListPayload() buzzerListUpdatePayload {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buzzerListPayloadLocked(len(r.buzzers))
}

func (r *ConnectionRegistry) consolePeer() *Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.console
}

func (r *ConnectionRegistry) buzzerPeer(buzzerID string) (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.buzzers[buzzerID]
	return p, ok
}

func (r *ConnectionRegistry) allBuzzers() []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Peer, 0, len(r.buzzers))
	for _, b := range r.buzzers {
		out = append(out, b)
	}
	return out
}

func (r *ConnectionRegistry) totalBuzzers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buzzers)
}

// sendPayload marshals a payload and writes the envelope, logging on
// failure rather than propagating (sends to a dead transport are expected).
func sendPayload(p *Peer, typ, sender string, payload any, clock Clock) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return
	}
	_ = p.send(envelope{
		Type:      typ,
		Timestamp: nowMillis(clock),
		Sender:    sender,
		Payload:   raw,
	})
}

func newSessionID() string {
	return fmt.Sprintf("sess_%s", newUUID())
}
