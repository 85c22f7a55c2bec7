package main

import "encoding/json"

// Router dispatches a parsed envelope to the pre- or post-identification
// handler based on peer class. Unknown message types are
// logged and dropped; the connection is never closed for an unknown type.
type Router struct {
	registry *ConnectionRegistry
	games    *GameManager
	jingles  JingleLookup
	cfg      *Config
	clock    Clock
}

func newRouter(cfg *Config, registry *ConnectionRegistry, games *GameManager, jingles JingleLookup, clock Clock) *Router {
	return &Router{registry: registry, games: games, jingles: jingles, cfg: cfg, clock: clock}
}

// dispatch parses one text frame and routes it. Parse failures are logged
// and the frame is dropped.
func (rt *Router) dispatch(p *Peer, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logf(rt.cfg, "ROUTER: malformed envelope from %s: %v", p.conn.remoteAddr(), err)
		return
	}

	p.mu.Lock()
	identified := p.identified
	class := p.class
	p.mu.Unlock()

	if !identified {
		parsed := decodePreIDPayload(env)
		rt.registry.handlePreIdentification(p, env, parsed)
		return
	}

	p.markAlive()

	// TIME_SYNC_REQ / PING are answered for either peer class, as they are
	// before identification. STATUS_UPDATE is handled for buzzers only and
	// dropped from a console.
	switch env.Type {
	case typeTimeSyncReq:
		var req timeSyncReqPayload
		_ = json.Unmarshal(env.Payload, &req)
		sendPayload(p, typeTimeSyncRes, senderServer, timeSyncResponse(rt.clock, req.T1), rt.clock)
		return
	case typePing:
		var ping pingPayload
		_ = json.Unmarshal(env.Payload, &ping)
		sendPayload(p, typePong, senderServer, pongResponse(rt.clock, ping.TSend), rt.clock)
		return
	case typeStatusUpdate:
		if class == peerBuzzer {
			rt.handleStatusUpdate(p, env)
		}
		return
	}

	switch class {
	case peerConsole:
		rt.dispatchConsole(p, env)
	case peerBuzzer:
		rt.dispatchBuzzer(p, env)
	default:
		logf(rt.cfg, "ROUTER: dropped %q from peer with no class", env.Type)
	}
}

func (rt *Router) handleStatusUpdate(p *Peer, env envelope) {
	var upd statusUpdatePayload
	if err := json.Unmarshal(env.Payload, &upd); err != nil {
		return
	}
	p.mu.Lock()
	p.battery = upd.Battery
	p.wifiRSSI = upd.WifiRSSI
	buzzerID := p.buzzerID
	p.mu.Unlock()

	console := rt.registry.consolePeer()
	if console != nil {
		sendPayload(console, typeBuzzerStatusUpdate, senderServer, buzzerStatusUpdatePayload{
			BuzzerID: buzzerID, Battery: upd.Battery, WifiRSSI: upd.WifiRSSI, FreeHeap: upd.FreeHeap,
		}, rt.clock)
	}
}

func (rt *Router) dispatchConsole(p *Peer, env envelope) {
	switch env.Type {
	case typeRequestBuzzerList:
		sendPayload(p, typeBuzzerListUpdate, senderServer, rt.registry.buzzerListPayload(), rt.clock)

	case typePlayerRename:
		var pr playerRenamePayload
		if err := json.Unmarshal(env.Payload, &pr); err != nil {
			return
		}
		if buzzer, ok := rt.registry.buzzerPeer(pr.BuzzerID); ok {
			buzzer.mu.Lock()
			buzzer.name = pr.NewName
			buzzer.mu.Unlock()
			sendPayload(buzzer, typePlayerNameUpdate, senderServer, playerNameUpdatePayload{Name: pr.NewName}, rt.clock)
		}
		sendPayload(p, typeBuzzerListUpdate, senderServer, rt.registry.buzzerListPayload(), rt.clock)

	case typeQuestionSend:
		var qs questionSendPayload
		if err := json.Unmarshal(env.Payload, &qs); err != nil {
			return
		}
		game := rt.games.getOrCreate(qs.GameID)
		game.dispatchQuestion(qs.QuestionID)

	case typeGameStart:
		var gs gameStartPayload
		if err := json.Unmarshal(env.Payload, &gs); err != nil {
			return
		}
		game := rt.games.getOrCreate(gs.GameID)
		game.start(gs.Name, gs.TotalQuestions)

	case typeBuzzerDisconnect:
		var bd buzzerDisconnectPayload
		if err := json.Unmarshal(env.Payload, &bd); err != nil {
			return
		}
		if buzzer, ok := rt.registry.buzzerPeer(bd.BuzzerID); ok {
			rt.registry.remove(buzzer)
			_ = buzzer.conn.close(closeAdminDisconnect, "disconnected by console")
		}

	case typeBuzzCorrect:
		var d buzzDecisionPayload
		if err := json.Unmarshal(env.Payload, &d); err != nil {
			return
		}
		game := rt.games.getOrCreate(d.GameID)
		game.validateBuzz(d.QuestionID, true)

	case typeBuzzReopen:
		var d buzzDecisionPayload
		if err := json.Unmarshal(env.Payload, &d); err != nil {
			return
		}
		game := rt.games.getOrCreate(d.GameID)
		game.validateBuzz(d.QuestionID, false)
		game.excludePlayer(d.QuestionID, d.BuzzerID)

	case typeJinglePlay:
		var jp jinglePlayPayload
		if err := json.Unmarshal(env.Payload, &jp); err != nil {
			return
		}
		// Jingle streams are not scoped to a game in the wire protocol;
		// route through a single synthetic game bucket, shared by all
		// buzzers, so the per-buzzer activeJingleStreams bookkeeping in Game
		// applies uniformly.
		game := rt.games.getOrCreate(jingleGameBucket)
		game.playJingle(jp.BuzzerID, jp.JingleID, rt.jingles, rt.cfg.jingleDir)

	default:
		logf(rt.cfg, "ROUTER: dropped unknown console message %q", env.Type)
	}
}

func (rt *Router) dispatchBuzzer(p *Peer, env envelope) {
	p.mu.Lock()
	buzzerID := p.buzzerID
	p.mu.Unlock()

	switch env.Type {
	case typeAnswerMCQ:
		var a answerMCQPayload
		if err := json.Unmarshal(env.Payload, &a); err != nil {
			return
		}
		game := rt.games.getOrCreate(a.GameID)
		outcome := game.recordAnswer(a.QuestionID, buzzerID, a.Answer, a.Timestamps)
		if outcome.Duplicate || !outcome.Found {
			return
		}
		console := rt.registry.consolePeer()
		if console != nil {
			sendPayload(console, typeAnswerReceived, senderServer, answerReceivedPayload{
				BuzzerID: buzzerID, QuestionID: a.QuestionID, Answer: a.Answer,
				IsCorrect: outcome.IsCorrect, Points: outcome.Points,
				ResponseTime: outcome.ResponseTime, Timestamps: a.Timestamps,
			}, rt.clock)
		}

	case typeAnswerBuzzer:
		var a answerBuzzerPayload
		if err := json.Unmarshal(env.Payload, &a); err != nil {
			return
		}
		game := rt.games.getOrCreate(a.GameID)
		result := game.recordBuzz(a.QuestionID, buzzerID, a.Timestamps)
		if result.Ignored {
			sendPayload(p, typeBuzzIgnored, senderServer, buzzIgnoredPayload{Reason: result.Reason}, rt.clock)
		}

	default:
		logf(rt.cfg, "ROUTER: dropped unknown buzzer message %q", env.Type)
	}
}

// jingleGameBucket is the GameManager key used for the jingle-streaming
// bookkeeping (activeJingleStreams), which is per-buzzer rather than
// per-game on the wire (JINGLE_PLAY carries no gameId).
const jingleGameBucket = "__jingle__"

func decodePreIDPayload(env envelope) any {
	switch env.Type {
	case typeTimeSyncReq:
		var v timeSyncReqPayload
		_ = json.Unmarshal(env.Payload, &v)
		return v
	case typePing:
		var v pingPayload
		_ = json.Unmarshal(env.Payload, &v)
		return v
	case typeBuzzerRegister:
		var v buzzerRegisterPayload
		_ = json.Unmarshal(env.Payload, &v)
		return v
	default:
		return nil
	}
}
