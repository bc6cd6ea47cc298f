package wsserver

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom/schema"
)

// Conn is one registered connection: a user identity, an outbound queue,
// and the set of rooms the connection has joined. Membership is mutated
// only through the registry.
type Conn struct {
	userID schema.UserID
	send   chan schema.ServerMessage
	rooms  map[schema.RoomID]struct{}
}

// UserID returns the authenticated identity bound at handshake.
func (c *Conn) UserID() schema.UserID { return c.userID }

// Outbound is the queue the write pump drains. It is closed when the
// connection is unregistered.
func (c *Conn) Outbound() <-chan schema.ServerMessage { return c.send }

// Registry tracks live connections and fans broadcasts out to room
// members. Its lifecycle is tied to the server: connections register after
// a successful handshake and unregister when their socket closes.
type Registry struct {
	mu     sync.Mutex
	conns  map[*Conn]struct{}
	buffer int
	logger pslog.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(sendBuffer int, logger pslog.Logger) *Registry {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Registry{
		conns:  make(map[*Conn]struct{}),
		buffer: sendBuffer,
		logger: logger,
	}
}

// Register adds a connection for the given user.
func (r *Registry) Register(userID schema.UserID) *Conn {
	c := &Conn{
		userID: userID,
		send:   make(chan schema.ServerMessage, r.buffer),
		rooms:  make(map[schema.RoomID]struct{}),
	}
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
	return c
}

// Unregister removes a connection and closes its outbound queue. Safe to
// call more than once.
func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		return
	}
	delete(r.conns, c)
	close(c.send)
}

// Join adds a room to the connection's membership set.
func (r *Registry) Join(c *Conn, roomID schema.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		return
	}
	c.rooms[roomID] = struct{}{}
}

// Leave removes a room from the connection's membership set.
func (r *Registry) Leave(c *Conn, roomID schema.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		return
	}
	delete(c.rooms, roomID)
}

// Broadcast queues the message on every member of the room, including the
// sender; the echo back to the originator carries the durable id the
// client reconciles against. Returns the number of queued deliveries. A
// member with a full queue misses the message.
func (r *Registry) Broadcast(roomID schema.RoomID, msg schema.ServerMessage) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delivered := 0
	for c := range r.conns {
		if _, member := c.rooms[roomID]; !member {
			continue
		}
		select {
		case c.send <- msg:
			delivered++
		default:
			r.logger.Warn("broadcast dropped for slow connection", "user", c.userID, "room", int64(roomID))
		}
	}
	return delivered
}

// RoomMembers reports how many connections have joined the room.
func (r *Registry) RoomMembers(roomID schema.RoomID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := 0
	for c := range r.conns {
		if _, ok := c.rooms[roomID]; ok {
			members++
		}
	}
	return members
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
