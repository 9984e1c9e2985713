package jssh

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// wsTransport carries one script per text message and expects exactly one
// text message back.
type wsTransport struct {
	conn *websocket.Conn
}

func dialWebSocket(ctx context.Context, host string, port int, path string, timeout time.Duration) (*wsTransport, error) {
	if path == "" {
		path = "/"
	}
	u := url.URL{Scheme: "ws", Host: host + ":" + strconv.Itoa(port), Path: path}

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to WebSocket: %w", err)
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) roundTrip(ctx context.Context, script string) (string, error) {
	deadline, _ := ctx.Deadline()
	t.conn.SetWriteDeadline(deadline)
	t.conn.SetReadDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		t.conn.UnderlyingConn().SetDeadline(time.Now())
	})
	defer stop()

	if err := t.conn.WriteMessage(websocket.TextMessage, []byte(script)); err != nil {
		return "", contextError(ctx, fmt.Errorf("writing script: %w", err))
	}

	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", contextError(ctx, err)
		}
		if kind == websocket.TextMessage {
			return string(data), nil
		}
	}
}

func (t *wsTransport) close() error {
	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return t.conn.Close()
}
