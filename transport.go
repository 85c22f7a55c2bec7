package main

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var errConnClosed = errors.New("connection closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsConn adapts a gorilla/websocket connection to transportConn. Writes are
// serialized under a mutex, rather than fed through a separate writer
// goroutine, so the jingle streamer can write synchronously, observe a
// write failure immediately, and abort mid-stream.
type wsConn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (w *wsConn) sendEnvelope(env envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errConnClosed
	}
	return w.conn.WriteJSON(env)
}

func (w *wsConn) sendBinary(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errConnClosed
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (w *wsConn) close(code int, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	deadline := time.Now().Add(time.Second)
	_ = w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	return w.conn.Close()
}

func (w *wsConn) remoteAddr() string {
	if w.conn.RemoteAddr() == nil {
		return ""
	}
	return w.conn.RemoteAddr().String()
}

// serveSocket upgrades the connection, accepts it into the registry, and
// runs the blocking read loop that feeds the Router. One goroutine per
// connection.
func serveSocket(cfg *Config, registry *ConnectionRegistry, router *Router) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "TRANSPORT: upgrade error: %v", err)
			return
		}

		wc := newWSConn(conn)
		peer := registry.accept(wc)

		defer func() {
			registry.remove(peer)
			_ = wc.close(closeAdminDisconnect, "connection closed")
		}()

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			router.dispatch(peer, data)
		}
	}
}
