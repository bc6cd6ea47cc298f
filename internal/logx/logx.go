package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom/schema"
)

type contextKey int

const (
	userKey contextKey = iota
	roomKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithUser annotates the logger with the user id if present.
func WithUser(ctx context.Context, userID schema.UserID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if userID != "" {
		if current, ok := ctx.Value(userKey).(schema.UserID); ok && current == userID {
			return log
		}
		log = log.With("user", userID)
	}
	return log
}

// WithUserRoom annotates the logger with user and room identifiers.
func WithUserRoom(ctx context.Context, userID schema.UserID, roomID schema.RoomID) pslog.Logger {
	log := WithUser(ctx, userID)
	if roomID != 0 {
		if current, ok := ctx.Value(roomKey).(schema.RoomID); ok && current == roomID {
			return log
		}
		log = log.With("room", int64(roomID))
	}
	return log
}

// ContextWithUser stores the user marker on the context for log de-duplication.
func ContextWithUser(ctx context.Context, userID schema.UserID) context.Context {
	if ctx == nil || userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userKey, userID)
}

// ContextWithRoom stores the room marker on the context for log de-duplication.
func ContextWithRoom(ctx context.Context, roomID schema.RoomID) context.Context {
	if ctx == nil || roomID == 0 {
		return ctx
	}
	return context.WithValue(ctx, roomKey, roomID)
}

// ContextWithUserLogger attaches the logger and user marker to the context.
func ContextWithUserLogger(ctx context.Context, log pslog.Logger, userID schema.UserID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithUser(ctx, userID)
}
