package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bloomkeepers/internal/app/relay"

	"github.com/gorilla/websocket"
)

// Dialer connects a guest to a host's relay endpoint.
type Dialer struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

func (d Dialer) Dial(ctx context.Context) (relay.ClientConn, error) {
	handshake := d.HandshakeTimeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}
	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	wd := websocket.Dialer{HandshakeTimeout: handshake}
	sock, _, err := wd.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", relay.ErrDial, err)
	}
	return &clientConn{sock: sock, writeTimeout: writeTimeout}, nil
}

type clientConn struct {
	sock         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
}

func (c *clientConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.sock.WriteMessage(websocket.TextMessage, data)
}

// Receive blocks until a data message arrives. Closing the connection
// unblocks it, which is how callers cancel.
func (c *clientConn) Receive(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kind, data, err := c.sock.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *clientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.sock.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.sock.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.sock.Close()
	})
	return err
}
