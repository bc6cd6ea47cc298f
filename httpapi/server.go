// Package httpapi serves the REST surface of the drawing service: account
// signup and signin, room management, and read/delete/update access to the
// per-room message log. Mutating appends arrive over the socket; this API
// owns everything else.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom/internal/auth"
	"pkt.systems/sketchroom/internal/chatlog"
	"pkt.systems/sketchroom/internal/logx"
	"pkt.systems/sketchroom/internal/token"
	"pkt.systems/sketchroom/schema"
)

// Server serves the HTTP API.
type Server struct {
	cfg    Config
	store  *chatlog.Store
	auth   *auth.Service
	tokens *token.Manager
	logger pslog.Logger
}

// NewServer constructs an HTTP server over the chatlog store.
func NewServer(cfg Config, store *chatlog.Store, authSvc *auth.Service, tokens *token.Manager, logger pslog.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("missing chatlog store")
	}
	if authSvc == nil {
		return nil, errors.New("missing auth service")
	}
	if tokens == nil {
		return nil, errors.New("missing token manager")
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Server{
		cfg:    NormalizeConfig(cfg),
		store:  store,
		auth:   authSvc,
		tokens: tokens,
		logger: logger,
	}, nil
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/signup", s.handleSignup)
	mux.HandleFunc("/signin", s.handleSignin)
	mux.HandleFunc("/room", s.requireAuth(s.handleCreateRoom))
	mux.HandleFunc("/room/", s.requireAuth(s.handleRoom))
	mux.HandleFunc("/rooms", s.requireAuth(s.handleListRooms))
	mux.HandleFunc("/chats/", s.requireAuth(s.handleChats))
	mux.HandleFunc("/chat/", s.requireAuth(s.handleChat))
	return withRequestLogging(mux, s.lookupCaller)
}

type authedHandler func(http.ResponseWriter, *http.Request, schema.UserID)

// requireAuth verifies the bearer token before invoking the handler.
func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.tokens.Verify(bearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, schema.ErrInvalidToken)
			return
		}
		next(w, r, userID)
	}
}

func (s *Server) lookupCaller(r *http.Request) schema.UserID {
	userID, err := s.tokens.Verify(bearerToken(r))
	if err != nil {
		return ""
	}
	return userID
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	var payload schema.SignupRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http signup decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := s.auth.Signup(r.Context(), payload.Username, payload.Password, payload.Name)
	if err != nil {
		log.Warn("http signup failed", "username", payload.Username, "err", err)
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, schema.SignupResponse{UserID: userID})
	log.Info("http signup ok", "username", payload.Username, "user", userID)
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	var payload schema.SigninRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http signin decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.auth.Authenticate(r.Context(), payload.Username, payload.Password, payload.TOTP)
	if err != nil {
		log.Warn("http signin failed", "username", payload.Username, "err", err)
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	signed, err := s.tokens.Issue(user.ID)
	if err != nil {
		log.Warn("http signin token issue failed", "user", user.ID, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, schema.SigninResponse{Token: signed})
	log.Info("http signin ok", "username", payload.Username, "user", user.ID)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.WithUser(r.Context(), userID)
	var payload schema.CreateRoomRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http room decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	slug := schema.RoomSlug(strings.TrimSpace(payload.Name))
	if slug == "" {
		writeError(w, http.StatusBadRequest, errors.New("room name is required"))
		return
	}
	room, err := s.store.CreateRoom(r.Context(), slug, userID)
	if err != nil {
		log.Warn("http room create failed", "slug", string(slug), "err", err)
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusCreated, schema.CreateRoomResponse{RoomID: room.ID})
	log.Info("http room created", "room", int64(room.ID), "slug", string(slug))
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rooms, err := s.store.ListRoomsByAdmin(r.Context(), userID)
	if err != nil {
		logx.WithUser(r.Context(), userID).Warn("http room list failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := schema.ListRoomsResponse{Rooms: make([]schema.RoomInfo, 0, len(rooms))}
	for _, room := range rooms {
		out.Rooms = append(out.Rooms, roomInfo(room))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRoom serves GET /room/{slug} and DELETE /room/{id}.
func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	rest := strings.TrimPrefix(r.URL.Path, "/room/")
	if rest == "" || strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleRoomBySlug(w, r, schema.RoomSlug(rest))
	case http.MethodDelete:
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid room id"))
			return
		}
		s.handleDeleteRoom(w, r, userID, schema.RoomID(id))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRoomBySlug(w http.ResponseWriter, r *http.Request, slug schema.RoomSlug) {
	room, err := s.store.RoomBySlug(r.Context(), slug)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	info := roomInfo(room)
	writeJSON(w, http.StatusOK, schema.RoomResponse{Room: &info})
}

// handleDeleteRoom removes a room and its entire log. Reserved for the
// room's admin.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request, userID schema.UserID, roomID schema.RoomID) {
	log := logx.WithUserRoom(r.Context(), userID, roomID)
	room, err := s.store.RoomByID(r.Context(), roomID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	if room.AdminID != userID {
		log.Warn("http room delete rejected", "admin", room.AdminID)
		writeError(w, http.StatusForbidden, schema.ErrNotRoomAdmin)
		return
	}
	if err := s.store.DeleteRoom(r.Context(), roomID); err != nil {
		log.Warn("http room delete failed", "err", err)
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, schema.StatusResponse{Success: true})
	log.Info("http room deleted", "slug", string(room.Slug))
}

// handleChats serves GET /chats/{roomID}: the room's log, newest first,
// capped at the configured history limit.
func (s *Server) handleChats(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/chats/")
	roomID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid room id"))
		return
	}
	entries, err := s.store.ChatsByRoom(r.Context(), schema.RoomID(roomID), s.cfg.HistoryLimit)
	if err != nil {
		logx.WithUserRoom(r.Context(), userID, schema.RoomID(roomID)).Warn("http chats failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []schema.ChatEntry{}
	}
	writeJSON(w, http.StatusOK, schema.ChatsResponse{Messages: entries})
}

// handleChat serves DELETE and PUT on /chat/{chatID}. The entry's author
// and the room admin may mutate it; anyone else is rejected.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, userID schema.UserID) {
	rest := strings.TrimPrefix(r.URL.Path, "/chat/")
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid chat id"))
		return
	}
	chatID := schema.ChatID(id)
	log := logx.WithUser(r.Context(), userID).With("chat_id", id)

	entry, err := s.store.ChatByID(r.Context(), chatID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	if err := s.authorizeChatMutation(r.Context(), entry, userID); err != nil {
		log.Warn("http chat mutation rejected", "author", entry.UserID)
		writeError(w, http.StatusForbidden, err)
		return
	}

	switch r.Method {
	case http.MethodDelete:
		if err := s.store.DeleteChat(r.Context(), chatID); err != nil {
			writeError(w, statusFor(err, http.StatusInternalServerError), err)
			return
		}
		writeJSON(w, http.StatusOK, schema.StatusResponse{Success: true})
		log.Info("http chat deleted")
	case http.MethodPut:
		var payload schema.UpdateChatRequest
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.store.UpdateChat(r.Context(), chatID, payload.Message); err != nil {
			writeError(w, statusFor(err, http.StatusInternalServerError), err)
			return
		}
		writeJSON(w, http.StatusOK, schema.StatusResponse{Success: true})
		log.Info("http chat updated")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) authorizeChatMutation(ctx context.Context, entry schema.ChatEntry, userID schema.UserID) error {
	if entry.UserID == userID {
		return nil
	}
	room, err := s.store.RoomByID(ctx, entry.RoomID)
	if err == nil && room.AdminID == userID {
		return nil
	}
	return schema.ErrNotRoomAdmin
}

func roomInfo(room chatlog.Room) schema.RoomInfo {
	return schema.RoomInfo{
		ID:        room.ID,
		Slug:      room.Slug,
		AdminID:   room.AdminID,
		CreatedAt: room.CreatedAt,
	}
}

func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, schema.ErrInvalidCredentials), errors.Is(err, schema.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, schema.ErrNotRoomAdmin):
		return http.StatusForbidden
	case errors.Is(err, schema.ErrUserExists), errors.Is(err, schema.ErrRoomExists):
		return http.StatusConflict
	case errors.Is(err, schema.ErrUserNotFound), errors.Is(err, schema.ErrRoomNotFound), errors.Is(err, schema.ErrChatNotFound):
		return http.StatusNotFound
	default:
		return fallback
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
