// Package wsclient maintains the persistent room socket for a drawing
// client and implements the outbound half of the sync channel.
package wsclient

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom/schema"
)

// Handler consumes inbound broadcast envelopes, typically a core.Session.
type Handler interface {
	HandleInbound(ctx context.Context, msg schema.ServerMessage)
}

// Client is one persistent socket connection. Writes are serialized by a
// mutex; reads happen on the caller's Listen goroutine.
type Client struct {
	conn   *websocket.Conn
	logger pslog.Logger

	writeMu sync.Mutex
	closed  bool
}

// Dial connects to the broadcast server, attaching the bearer token to the
// handshake as a query parameter. The server rejects the handshake outright
// on an invalid token.
func Dial(ctx context.Context, rawURL, token string, logger pslog.Logger) (*Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("missing socket url")
	}
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	endpoint, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	query := endpoint.Query()
	query.Set("token", token)
	endpoint.RawQuery = query.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	logger.Info("socket connected", "url", rawURL)
	return &Client{conn: conn, logger: logger}, nil
}

// JoinRoom subscribes the connection to a room's broadcasts.
func (c *Client) JoinRoom(roomID schema.RoomID) error {
	return c.send(schema.ClientMessage{Type: schema.MessageJoinRoom, RoomID: roomID})
}

// LeaveRoom unsubscribes the connection from a room.
func (c *Client) LeaveRoom(roomID schema.RoomID) error {
	return c.send(schema.ClientMessage{Type: schema.MessageLeaveRoom, RoomID: roomID})
}

// SendChat sends one mutation envelope. Implements the channel consumed by
// the session.
func (c *Client) SendChat(roomID schema.RoomID, message string) error {
	return c.send(schema.ClientMessage{Type: schema.MessageChat, RoomID: roomID, Message: message})
}

func (c *Client) send(msg schema.ClientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return errors.New("socket closed")
	}
	return c.conn.WriteJSON(msg)
}

// Listen reads broadcast envelopes until the socket or context closes,
// handing each to the handler. Unparseable frames are dropped.
func (c *Client) Listen(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("missing handler")
	}
	for {
		var msg schema.ServerMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		handler.HandleInbound(ctx, msg)
	}
}

// Close shuts the socket down.
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}
