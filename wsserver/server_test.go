package wsserver

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/sketchroom/schema"
	"pkt.systems/sketchroom/wsclient"
)

type memoryLog struct {
	mu      sync.Mutex
	next    schema.ChatID
	entries []schema.ChatEntry
	fail    bool
}

func (l *memoryLog) AppendChat(_ context.Context, roomID schema.RoomID, userID schema.UserID, message string) (schema.ChatID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return 0, errors.New("append refused")
	}
	l.next++
	l.entries = append(l.entries, schema.ChatEntry{ID: l.next, RoomID: roomID, UserID: userID, Message: message})
	return l.next, nil
}

func (l *memoryLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type staticVerifier map[string]schema.UserID

func (v staticVerifier) Verify(raw string) (schema.UserID, error) {
	if user, ok := v[raw]; ok {
		return user, nil
	}
	return "", schema.ErrInvalidToken
}

type collector struct {
	mu       sync.Mutex
	messages []schema.ServerMessage
}

func (c *collector) HandleInbound(_ context.Context, msg schema.ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *collector) waitForMessage(t *testing.T) schema.ServerMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.messages) > 0 {
			msg := c.messages[0]
			c.mu.Unlock()
			return msg
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no message received")
	return schema.ServerMessage{}
}

func newTestServer(t *testing.T) (*Server, *memoryLog, *httptest.Server) {
	t.Helper()
	log := &memoryLog{}
	server, err := New(Config{}, Deps{
		Log:    log,
		Tokens: staticVerifier{"tok-a": "user-a", "tok-b": "user-b"},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server, log, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHandshakeRejectsInvalidToken(t *testing.T) {
	_, _, ts := newTestServer(t)
	if _, err := wsclient.Dial(context.Background(), wsURL(ts), "bogus", nil); err == nil {
		t.Fatal("invalid token accepted")
	}
}

func TestChatFanOutToAllRoomMembers(t *testing.T) {
	server, log, ts := newTestServer(t)
	ctx := context.Background()

	clientA, err := wsclient.Dial(ctx, wsURL(ts), "tok-a", nil)
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer func() { _ = clientA.Close() }()
	clientB, err := wsclient.Dial(ctx, wsURL(ts), "tok-b", nil)
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer func() { _ = clientB.Close() }()

	inboxA, inboxB := &collector{}, &collector{}
	go func() { _ = clientA.Listen(ctx, inboxA) }()
	go func() { _ = clientB.Listen(ctx, inboxB) }()

	if err := clientA.JoinRoom(7); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := clientB.JoinRoom(7); err != nil {
		t.Fatalf("join b: %v", err)
	}
	waitFor(t, "both members", func() bool { return server.Registry().RoomMembers(7) == 2 })

	payload := `{"shape":{"type":"rect","x":1,"y":2,"width":3,"height":4},"localId":"x"}`
	if err := clientA.SendChat(7, payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	for name, inbox := range map[string]*collector{"a": inboxA, "b": inboxB} {
		msg := inbox.waitForMessage(t)
		if msg.Type != schema.MessageChat || msg.RoomID != 7 {
			t.Fatalf("%s received %+v", name, msg)
		}
		if msg.ChatID == 0 {
			t.Fatalf("%s received no durable id", name)
		}
		if msg.Message != payload {
			t.Fatalf("%s message = %q", name, msg.Message)
		}
	}
	if log.count() != 1 {
		t.Fatalf("log entries = %d, want 1", log.count())
	}
}

func TestNonMemberReceivesNothing(t *testing.T) {
	server, _, ts := newTestServer(t)
	ctx := context.Background()

	clientA, err := wsclient.Dial(ctx, wsURL(ts), "tok-a", nil)
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer func() { _ = clientA.Close() }()
	clientB, err := wsclient.Dial(ctx, wsURL(ts), "tok-b", nil)
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer func() { _ = clientB.Close() }()

	inboxA, inboxB := &collector{}, &collector{}
	go func() { _ = clientA.Listen(ctx, inboxA) }()
	go func() { _ = clientB.Listen(ctx, inboxB) }()

	if err := clientA.JoinRoom(7); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitFor(t, "member", func() bool { return server.Registry().RoomMembers(7) == 1 })

	if err := clientA.SendChat(7, `{"deleteChatId":5}`); err != nil {
		t.Fatalf("send: %v", err)
	}
	inboxA.waitForMessage(t)

	inboxB.mu.Lock()
	got := len(inboxB.messages)
	inboxB.mu.Unlock()
	if got != 0 {
		t.Fatalf("non-member received %d messages", got)
	}
}

func TestAppendFailureSuppressesBroadcast(t *testing.T) {
	server, log, ts := newTestServer(t)
	log.fail = true
	ctx := context.Background()

	client, err := wsclient.Dial(ctx, wsURL(ts), "tok-a", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = client.Close() }()
	inbox := &collector{}
	go func() { _ = client.Listen(ctx, inbox) }()

	if err := client.JoinRoom(7); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitFor(t, "member", func() bool { return server.Registry().RoomMembers(7) == 1 })
	if err := client.SendChat(7, `{"deleteChatId":5}`); err != nil {
		t.Fatalf("send: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	inbox.mu.Lock()
	got := len(inbox.messages)
	inbox.mu.Unlock()
	if got != 0 {
		t.Fatalf("broadcast happened despite append failure: %d messages", got)
	}
}

func TestCloseUnregistersConnection(t *testing.T) {
	server, _, ts := newTestServer(t)
	ctx := context.Background()

	client, err := wsclient.Dial(ctx, wsURL(ts), "tok-a", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := client.JoinRoom(7); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitFor(t, "registration", func() bool { return server.Registry().Len() == 1 })

	_ = client.Close()
	waitFor(t, "unregistration", func() bool { return server.Registry().Len() == 0 })
	if n := server.Registry().RoomMembers(7); n != 0 {
		t.Fatalf("members = %d after close", n)
	}
}

func TestMalformedFrameDoesNotKillConnection(t *testing.T) {
	server, log, ts := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts)+"/?token=tok-a", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(schema.ClientMessage{Type: schema.MessageJoinRoom, RoomID: 7}); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitFor(t, "member", func() bool { return server.Registry().RoomMembers(7) == 1 })

	// Raw garbage frame; the server must drop it and keep reading.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not-json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := conn.WriteJSON(schema.ClientMessage{Type: schema.MessageChat, RoomID: 7, Message: "still-works"}); err != nil {
		t.Fatalf("send after garbage: %v", err)
	}

	var msg schema.ServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if msg.Message != "still-works" || msg.ChatID == 0 {
		t.Fatalf("echo = %+v", msg)
	}
	if log.count() != 1 {
		t.Fatalf("log entries = %d, want 1", log.count())
	}
}
