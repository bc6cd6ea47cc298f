package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom/schema"
)

// Session drives one client's view of a room: the optimistic shape store,
// the pending-mutation bookkeeping, and reconciliation of server echoes.
// All mutation funnels through the session mutex; the store itself stays
// lock-free.
type Session struct {
	mu        sync.Mutex
	cfg       schema.EngineConfig
	roomID    schema.RoomID
	store     *Store
	channel   Channel
	logClient LogClient
	repainter Repainter
	logger    pslog.Logger

	// pending tracks optimistic creations awaiting the server echo.
	pending map[schema.LocalID]time.Time
	// deletedPending tracks creations deleted locally before their echo
	// arrived; the delete against the log is deferred until the durable id
	// is known.
	deletedPending map[schema.LocalID]struct{}

	tool    Tool
	pan     schema.Point
	gesture gesture
}

// NewSession constructs a session for one room.
func NewSession(roomID schema.RoomID, cfg schema.EngineConfig, deps SessionDeps) (*Session, error) {
	normalized, err := schema.NormalizeEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Channel == nil {
		return nil, errors.New("missing channel")
	}
	if deps.LogClient == nil {
		return nil, errors.New("missing log client")
	}
	store, err := NewStore(normalized)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Session{
		cfg:            normalized,
		roomID:         roomID,
		store:          store,
		channel:        deps.Channel,
		logClient:      deps.LogClient,
		repainter:      deps.Repainter,
		logger:         logger.With("room_id", int64(roomID)),
		pending:        make(map[schema.LocalID]time.Time),
		deletedPending: make(map[schema.LocalID]struct{}),
		tool:           ToolSelect,
	}, nil
}

// RoomID returns the room this session is bound to.
func (s *Session) RoomID() schema.RoomID { return s.roomID }

// LoadHistory materializes the store from the room's persisted log.
// Entries whose payload does not decode to a shape are dropped: the log
// also holds delete/update notifications and may carry entries from older
// schema revisions.
func (s *Session) LoadHistory(ctx context.Context) error {
	entries, err := s.logClient.FetchRoomLog(ctx, s.roomID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	loaded, dropped := 0, 0
	for _, entry := range entries {
		payload, err := schema.ParseChatPayload(entry.Message)
		if err != nil || payload.Shape == nil {
			dropped++
			continue
		}
		shape, err := schema.DecodeShape(payload.Shape)
		if err != nil {
			dropped++
			continue
		}
		if _, exists := s.store.FindDurable(entry.ID); exists {
			continue
		}
		if _, err := s.store.Append(schema.DurableRef(entry.ID), shape); err != nil {
			dropped++
			continue
		}
		loaded++
	}
	s.logger.Info("session history loaded", "shapes", loaded, "dropped", dropped)
	s.repaintLocked()
	return nil
}

// CreateShape pushes a shape into the store optimistically and sends the
// creation over the channel keyed by a freshly minted local id.
func (s *Session) CreateShape(ctx context.Context, shape schema.Shape) (schema.LocalID, error) {
	if shape == nil {
		return "", errors.New("missing shape")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createShapeLocked(ctx, shape)
}

func (s *Session) createShapeLocked(_ context.Context, shape schema.Shape) (schema.LocalID, error) {
	localID := newLocalID()
	if _, err := s.store.Append(schema.LocalRef(localID), shape); err != nil {
		return "", err
	}
	s.pending[localID] = time.Now()
	message, err := schema.EncodeCreatePayload(shape, localID)
	if err != nil {
		return "", err
	}
	if err := s.channel.SendChat(s.roomID, message); err != nil {
		s.logger.Warn("session create send failed", "local_id", string(localID), "err", err)
	}
	s.repaintLocked()
	return localID, nil
}

// DeleteSelected removes the currently selected shape, if any.
func (s *Session) DeleteSelected(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.store.Selected()
	if !ok {
		return
	}
	s.deleteRecordLocked(ctx, rec)
	s.repaintLocked()
}

// deleteRecordLocked removes a record and propagates the deletion. A record
// still waiting for its echo has no durable id yet; its local id goes into
// the deleted-pending set and the log delete is deferred to echo time.
func (s *Session) deleteRecordLocked(ctx context.Context, rec *Record) {
	s.store.Remove(rec)
	if durable, ok := rec.Ref.Durable(); ok {
		s.propagateDeleteLocked(ctx, durable)
		return
	}
	if local, ok := rec.Ref.Local(); ok {
		delete(s.pending, local)
		s.deletedPending[local] = struct{}{}
		s.logger.Debug("session delete deferred", "local_id", string(local))
	}
}

func (s *Session) propagateDeleteLocked(ctx context.Context, chatID schema.ChatID) {
	if err := s.logClient.DeleteEntry(ctx, chatID); err != nil {
		s.logger.Warn("session log delete failed", "chat_id", int64(chatID), "err", err)
	}
	message, err := schema.EncodeDeletePayload(chatID)
	if err != nil {
		s.logger.Warn("session delete encode failed", "chat_id", int64(chatID), "err", err)
		return
	}
	if err := s.channel.SendChat(s.roomID, message); err != nil {
		s.logger.Warn("session delete send failed", "chat_id", int64(chatID), "err", err)
	}
}

// commitUpdateLocked propagates an in-place geometry change after a drag,
// resize, or text edit. A record without a durable id keeps the change
// locally; the eventual create echo carries the original geometry and the
// divergence is accepted (soft consistency).
func (s *Session) commitUpdateLocked(ctx context.Context, rec *Record) {
	durable, ok := rec.Ref.Durable()
	if !ok {
		return
	}
	// The log stores the bare shape document so a later history fetch
	// materializes the entry; only the socket broadcast wraps it in the
	// update envelope.
	stored, err := schema.EncodeShapePayload(rec.Shape)
	if err != nil {
		s.logger.Warn("session update encode failed", "chat_id", int64(durable), "err", err)
		return
	}
	if err := s.logClient.UpdateEntry(ctx, durable, stored); err != nil {
		s.logger.Warn("session log update failed", "chat_id", int64(durable), "err", err)
	}
	message, err := schema.EncodeUpdatePayload(durable, rec.Shape)
	if err != nil {
		s.logger.Warn("session update encode failed", "chat_id", int64(durable), "err", err)
		return
	}
	if err := s.channel.SendChat(s.roomID, message); err != nil {
		s.logger.Warn("session update send failed", "chat_id", int64(durable), "err", err)
	}
}

// HandleInbound applies one broadcast envelope to the store. Malformed
// payloads are dropped without affecting other records.
func (s *Session) HandleInbound(ctx context.Context, msg schema.ServerMessage) {
	if msg.Type != schema.MessageChat || msg.RoomID != s.roomID {
		return
	}
	payload, err := schema.ParseChatPayload(msg.Message)
	if err != nil {
		s.logger.Debug("session inbound dropped", "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case payload.DeleteChatID != 0:
		if _, ok := s.store.RemoveDurable(payload.DeleteChatID); ok {
			s.repaintLocked()
		}
	case payload.UpdateShape != nil:
		s.applyUpdateLocked(payload.UpdateShape)
	case payload.Shape != nil:
		s.applyCreateLocked(ctx, msg.ChatID, payload)
	}
}

func (s *Session) applyUpdateLocked(update *schema.ShapeUpdate) {
	shape, err := schema.DecodeShape(update.Shape)
	if err != nil {
		s.logger.Debug("session update dropped", "chat_id", int64(update.ChatID), "err", err)
		return
	}
	rec, ok := s.store.FindDurable(update.ChatID)
	if !ok {
		return
	}
	rec.Shape = shape
	s.repaintLocked()
}

// applyCreateLocked reconciles a creation echo. Dispatch order:
//  1. local id in the deleted-pending set: the shape was erased before its
//     echo arrived; perform the deferred delete and suppress insertion.
//  2. local id in the pending map: our own echo; attach the durable id to
//     the existing record in place.
//  3. durable id already present: duplicate delivery; ignore.
//  4. otherwise: another client's creation; insert keyed by the durable id.
func (s *Session) applyCreateLocked(ctx context.Context, chatID schema.ChatID, payload schema.ChatPayload) {
	if localID := payload.LocalID; localID != "" {
		if _, deleted := s.deletedPending[localID]; deleted {
			delete(s.deletedPending, localID)
			if chatID != 0 {
				s.logger.Debug("session deferred delete", "local_id", string(localID), "chat_id", int64(chatID))
				s.propagateDeleteLocked(ctx, chatID)
			}
			return
		}
		if _, ok := s.pending[localID]; ok {
			delete(s.pending, localID)
			if rec, found := s.store.FindLocal(localID); found {
				rec.Ref = rec.Ref.WithDurable(chatID)
				s.repaintLocked()
				return
			}
		}
	}
	if chatID == 0 {
		return
	}
	if _, exists := s.store.FindDurable(chatID); exists {
		return
	}
	shape, err := schema.DecodeShape(payload.Shape)
	if err != nil {
		s.logger.Debug("session create dropped", "chat_id", int64(chatID), "err", err)
		return
	}
	if _, err := s.store.Append(schema.DurableRef(chatID), shape); err != nil {
		s.logger.Debug("session create dropped", "chat_id", int64(chatID), "err", err)
		return
	}
	s.repaintLocked()
}

// Records returns a snapshot of the store in insertion order.
func (s *Session) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, s.store.Len())
	for _, rec := range s.store.Records() {
		out = append(out, *rec)
	}
	return out
}

// Selected returns the selected record's identifier pair, if any.
func (s *Session) Selected() (schema.ShapeRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.store.Selected()
	if !ok {
		return schema.ShapeRef{}, false
	}
	return rec.Ref, true
}

// PendingCount reports how many creations still await their echo.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Session) repaintLocked() {
	if s.repainter != nil {
		s.repainter.Repaint()
	}
}
