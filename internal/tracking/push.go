package tracking

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// PushConn is an open per-driver location channel.
type PushConn interface {
	// ReadMessage blocks until a message arrives or the channel fails.
	ReadMessage() ([]byte, error)
	Close() error
}

// PushDialer opens the location channel for a driver.
type PushDialer interface {
	Dial(ctx context.Context, driverID string) (PushConn, error)
}

// WSDialer dials the service's websocket feed at
// <BaseURL>/ws/drivers/{driverID}/location.
type WSDialer struct {
	BaseURL string
	Token   string
	// IdleTimeout closes the channel when nothing (message or pong) arrives
	// for this long. Zero leaves dead-channel detection to the transport.
	IdleTimeout time.Duration
	Dialer      *websocket.Dialer
}

func (d *WSDialer) Dial(ctx context.Context, driverID string) (PushConn, error) {
	u, err := url.Parse(strings.TrimRight(d.BaseURL, "/") + "/ws/drivers/" + url.PathEscape(driverID) + "/location")
	if err != nil {
		return nil, fmt.Errorf("tracking.WSDialer parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	header := http.Header{}
	if d.Token != "" {
		header.Set("Authorization", "Bearer "+d.Token)
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("tracking.WSDialer dial %s: HTTP %d: %w", u, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("tracking.WSDialer dial %s: %w", u, err)
	}

	wc := &wsConn{conn: conn, idle: d.IdleTimeout}
	if d.IdleTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(d.IdleTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(d.IdleTimeout))
		})
	}
	return wc, nil
}

type wsConn struct {
	conn *websocket.Conn
	idle time.Duration
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if c.idle > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.idle))
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}
