package transport

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport adapts a gorilla/websocket connection, which is
// message-oriented, to the byte-stream Transport contract the engine reads
// and writes MQTT control packets through. Each MQTT write becomes one
// binary WebSocket message; reads drain one message at a time into the
// caller's buffer, buffering any leftover bytes for the next Read call.
type WebSocketTransport struct {
	conn    *websocket.Conn
	pending []byte
}

// Subprotocol is the WebSocket subprotocol MQTT registers with IANA.
const Subprotocol = "mqtt"

// DialWebSocket connects to a ws:// or wss:// URL, negotiating the "mqtt"
// subprotocol.
func DialWebSocket(ctx context.Context, url string) (*WebSocketTransport, error) {
	dialer := websocket.Dialer{Subprotocols: []string{Subprotocol}}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &WebSocketTransport{conn: conn}, nil
}

// NewWebSocketTransport wraps an already-established connection, e.g. one
// accepted by a test server.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{conn: conn}
}

// Read implements Transport.
func (w *WebSocketTransport) Read(p []byte) (int, error) {
	for len(w.pending) == 0 {
		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		w.pending = data
	}

	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

// Write implements Transport.
func (w *WebSocketTransport) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements Transport.
func (w *WebSocketTransport) Close() error { return w.conn.Close() }

// SetReadDeadline implements Transport.
func (w *WebSocketTransport) SetReadDeadline(d time.Time) error { return w.conn.SetReadDeadline(d) }

// SetWriteDeadline implements Transport.
func (w *WebSocketTransport) SetWriteDeadline(d time.Time) error {
	return w.conn.SetWriteDeadline(d)
}

var _ Transport = (*WebSocketTransport)(nil)
