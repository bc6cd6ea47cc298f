// Package wsserver is the room broadcast layer: it authenticates socket
// handshakes, tracks room membership, appends chat mutations to the
// durable log, and fans the stamped message out to every room member.
package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom/internal/logx"
	"pkt.systems/sketchroom/schema"
)

// Log is the append sink that assigns durable identifiers.
type Log interface {
	AppendChat(ctx context.Context, roomID schema.RoomID, userID schema.UserID, message string) (schema.ChatID, error)
}

// TokenVerifier validates the handshake credential.
type TokenVerifier interface {
	Verify(raw string) (schema.UserID, error)
}

// Deps captures the server's dependencies.
type Deps struct {
	Log     Log
	Tokens  TokenVerifier
	Logger  pslog.Logger
	Metrics prometheus.Registerer
}

// Server upgrades sockets and runs one read loop per connection.
type Server struct {
	cfg      Config
	registry *Registry
	log      Log
	tokens   TokenVerifier
	logger   pslog.Logger
	upgrader websocket.Upgrader
	metrics  *metrics
	gatherer prometheus.Gatherer
}

// New constructs the broadcast server.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Log == nil {
		return nil, errors.New("missing log")
	}
	if deps.Tokens == nil {
		return nil, errors.New("missing token verifier")
	}
	cfg = NormalizeConfig(cfg)
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	registerer := deps.Metrics
	var gatherer prometheus.Gatherer
	if registerer == nil {
		registry := prometheus.NewRegistry()
		registerer = registry
		gatherer = registry
	} else if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}
	return &Server{
		cfg:      cfg,
		registry: NewRegistry(cfg.SendBuffer, logger),
		log:      deps.Log,
		tokens:   deps.Tokens,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics:  newMetrics(registerer),
		gatherer: gatherer,
	}, nil
}

// Registry exposes the connection registry, mainly for tests.
func (s *Server) Registry() *Registry { return s.registry }

// Handler returns the socket endpoint plus /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSocket)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// handleSocket authenticates the handshake and, on success, upgrades and
// serves the connection until its socket closes. An invalid credential is
// fatal for the attempt; nothing is retried.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	userID, err := s.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		s.logger.Warn("socket handshake rejected", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("socket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	ws.SetReadLimit(s.cfg.ReadLimitBytes)

	conn := s.registry.Register(userID)
	s.metrics.connections.Inc()
	log := logx.WithUser(r.Context(), userID)
	log.Info("socket connected", "remote", r.RemoteAddr)

	go writePump(ws, conn)
	s.readLoop(r.Context(), ws, conn)

	s.registry.Unregister(conn)
	s.metrics.connections.Dec()
	_ = ws.Close()
	log.Info("socket closed", "remote", r.RemoteAddr)
}

// readLoop processes inbound frames to completion, one at a time, until
// the socket errors out. Malformed frames are dropped; they must not take
// the connection down.
func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, conn *Conn) {
	log := logx.WithUser(ctx, conn.UserID())
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("socket read failed", "err", err)
			}
			return
		}
		var msg schema.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug("socket frame dropped", "err", err)
			continue
		}
		switch msg.Type {
		case schema.MessageJoinRoom:
			s.registry.Join(conn, msg.RoomID)
			s.metrics.joins.Inc()
			log.Info("room joined", "room", int64(msg.RoomID))
		case schema.MessageLeaveRoom:
			s.registry.Leave(conn, msg.RoomID)
			log.Info("room left", "room", int64(msg.RoomID))
		case schema.MessageChat:
			s.handleChat(ctx, conn, msg)
		default:
			log.Debug("socket frame dropped", "type", string(msg.Type))
		}
	}
}

// handleChat persists the mutation, stamps it with the assigned durable
// id, and fans it out to every current room member before returning.
func (s *Server) handleChat(ctx context.Context, conn *Conn, msg schema.ClientMessage) {
	log := logx.WithUserRoom(ctx, conn.UserID(), msg.RoomID)
	chatID, err := s.log.AppendChat(ctx, msg.RoomID, conn.UserID(), msg.Message)
	if err != nil {
		s.metrics.appendFailures.Inc()
		log.Warn("chat append failed", "err", err)
		return
	}
	out := schema.ServerMessage{
		Type:    schema.MessageChat,
		RoomID:  msg.RoomID,
		ChatID:  chatID,
		Message: msg.Message,
	}
	delivered := s.registry.Broadcast(msg.RoomID, out)
	s.metrics.broadcasts.Inc()
	s.metrics.deliveries.Add(float64(delivered))
	log.Debug("chat broadcast", "chat_id", int64(chatID), "delivered", delivered)
}

func writePump(ws *websocket.Conn, conn *Conn) {
	for msg := range conn.Outbound() {
		if err := ws.WriteJSON(msg); err != nil {
			break
		}
	}
	_ = ws.Close()
}
