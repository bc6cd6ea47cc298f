package core

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom/schema"
)

// Channel delivers outbound chat envelopes to the room socket.
type Channel interface {
	SendChat(roomID schema.RoomID, message string) error
}

// LogClient mutates the durable room log over HTTP. Failures are logged and
// never retried; the optimistic local state stays visible regardless.
type LogClient interface {
	FetchRoomLog(ctx context.Context, roomID schema.RoomID) ([]schema.ChatEntry, error)
	DeleteEntry(ctx context.Context, chatID schema.ChatID) error
	UpdateEntry(ctx context.Context, chatID schema.ChatID, message string) error
}

// Repainter is invoked after every mutation that changes the visible shape
// set. Rendering is a pure function of the store; the engine only signals.
type Repainter interface {
	Repaint()
}

// RepaintFunc adapts a plain function to Repainter.
type RepaintFunc func()

func (f RepaintFunc) Repaint() { f() }

// SessionDeps captures the dependencies of a room session. Channel and
// LogClient are required; the rest are optional.
type SessionDeps struct {
	Channel   Channel
	LogClient LogClient
	Repainter Repainter
	Logger    pslog.Logger
}
