package main

// Notifier is the minimal "send-to-console / send-to-buzzer / broadcast"
// capability the Game Session Engine, Buzz Arbiter, and Jingle Streamer are
// constructed with. None of those components import the registry or
// transport types directly; this breaks the cyclic dependency the original
// callback-slot design had.
type Notifier interface {
	ToConsole(typ string, payload any)
	ToBuzzer(buzzerID string, typ string, payload any) bool
	ToAllBuzzers(typ string, payload any)
	BinaryToBuzzer(buzzerID string, b []byte) bool
	AllBuzzerIDs() []string
}

// broadcaster is the default Notifier. The registry lock is only held long
// enough to copy out the peer pointers, never across the actual transport
// write.
type broadcaster struct {
	registry *ConnectionRegistry
	clock    Clock
	cfg      *Config
}

func newBroadcaster(cfg *Config, registry *ConnectionRegistry, clock Clock) *broadcaster {
	return &broadcaster{registry: registry, clock: clock, cfg: cfg}
}

func (b *broadcaster) ToConsole(typ string, payload any) {
	p := b.registry.consolePeer()
	if p == nil {
		logf(b.cfg, "BROADCAST: no console connected, dropping %s", typ)
		return
	}
	sendPayload(p, typ, senderServer, payload, b.clock)
}

func (b *broadcaster) ToBuzzer(buzzerID, typ string, payload any) bool {
	p, ok := b.registry.buzzerPeer(buzzerID)
	if !ok {
		logf(b.cfg, "BROADCAST: buzzer %s not connected, dropping %s", buzzerID, typ)
		return false
	}
	sendPayload(p, typ, senderServer, payload, b.clock)
	return true
}

func (b *broadcaster) ToAllBuzzers(typ string, payload any) {
	for _, p := range b.registry.allBuzzers() {
		sendPayload(p, typ, senderServer, payload, b.clock)
	}
}

func (b *broadcaster) AllBuzzerIDs() []string {
	peers := b.registry.allBuzzers()
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		p.mu.Lock()
		out = append(out, p.buzzerID)
		p.mu.Unlock()
	}
	return out
}

func (b *broadcaster) BinaryToBuzzer(buzzerID string, data []byte) bool {
	p, ok := b.registry.buzzerPeer(buzzerID)
	if !ok {
		return false
	}
	if err := p.conn.sendBinary(data); err != nil {
		logf(b.cfg, "BROADCAST: binary send to %s failed: %v", buzzerID, err)
		return false
	}
	return true
}
