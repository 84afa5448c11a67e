package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
	writeTimeout        = 10 * time.Second
)

// conn is one Engine.IO websocket session joined to the default namespace.
// Reads happen on a single goroutine; writes are serialized.
type conn struct {
	ws  *websocket.Conn
	wmu sync.Mutex

	sid          string
	pingInterval time.Duration
	pingTimeout  time.Duration
}

// endpointURL turns a backend base URL (http, https, ws or wss) into the
// Socket.IO websocket endpoint.
func endpointURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse socket url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported socket url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("socket url %q has no host", base)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket.io/"
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// dial connects, performs the Engine.IO open handshake and joins the default
// namespace. The whole handshake is bounded by timeout.
func dial(ctx context.Context, base string, header http.Header, timeout time.Duration) (*conn, error) {
	endpoint, err := endpointURL(base)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	ws, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &conn{ws: ws, pingInterval: defaultPingInterval, pingTimeout: defaultPingTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.SetReadDeadline(deadline)
	}
	// Unblock the handshake reads if ctx is cancelled mid-handshake.
	stop := context.AfterFunc(ctx, func() { _ = ws.SetReadDeadline(time.Now()) })
	defer stop()

	if err := c.handshake(); err != nil {
		_ = ws.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("socket handshake: %w", ctxErr)
		}
		return nil, err
	}
	if !stop() {
		_ = ws.Close()
		return nil, fmt.Errorf("socket handshake: %w", ctx.Err())
	}
	_ = ws.SetReadDeadline(time.Time{})
	return c, nil
}

func (c *conn) handshake() error {
	_, msg, err := c.ws.ReadMessage()
	if err != nil {
		return fmt.Errorf("read open packet: %w", err)
	}
	if len(msg) == 0 || msg[0] != eioOpen {
		return fmt.Errorf("expected open packet, got %q", truncate(string(msg), 40))
	}
	var open openPacket
	if err := json.Unmarshal(msg[1:], &open); err != nil {
		return fmt.Errorf("decode open packet: %w", err)
	}
	c.sid = open.SID
	if open.PingInterval > 0 {
		c.pingInterval = time.Duration(open.PingInterval) * time.Millisecond
	}
	if open.PingTimeout > 0 {
		c.pingTimeout = time.Duration(open.PingTimeout) * time.Millisecond
	}

	if err := c.write(encodeConnect()); err != nil {
		return fmt.Errorf("send connect: %w", err)
	}

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("await connect: %w", err)
		}
		if len(msg) == 0 {
			continue
		}
		switch msg[0] {
		case eioPing:
			if err := c.write([]byte{eioPong}); err != nil {
				return fmt.Errorf("send pong: %w", err)
			}
			continue
		case eioClose:
			return errors.New("server closed during handshake")
		case eioMessage:
		default:
			continue
		}
		p, err := decodePacket(msg[1:])
		if err != nil {
			return fmt.Errorf("await connect: %w", err)
		}
		switch p.Type {
		case sioConnect:
			return nil
		case sioConnectError:
			var ce connectError
			if len(p.Data) > 0 {
				_ = json.Unmarshal(p.Data, &ce)
			}
			if ce.Message == "" {
				ce.Message = "connection refused"
			}
			return errors.New(ce.Message)
		}
	}
}

// read returns the next frame. The deadline covers one ping period so a
// silent server is detected.
func (c *conn) read() ([]byte, error) {
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pingInterval + c.pingTimeout))
	_, msg, err := c.ws.ReadMessage()
	return msg, err
}

func (c *conn) write(frame []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// close leaves the namespace and closes the socket. Safe to call twice.
func (c *conn) close() error {
	_ = c.write(encodeDisconnect())
	c.wmu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.ws.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
