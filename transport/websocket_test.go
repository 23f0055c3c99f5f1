package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWebSocketTransportRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tr, err := DialWebSocket(ctx, url)
	require.NoError(t, err)
	defer tr.Close()

	_, err = tr.Write([]byte("PINGREQ"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := tr.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "PINGREQ", string(buf[:n]))
}
