package schema

import (
	"errors"
	"strings"
)

// UserID identifies an authenticated user.
type UserID string

// RoomID identifies a room.
type RoomID int64

// ChatID is the durable identifier a log append assigns to a mutation.
type ChatID int64

// LocalID is the client-minted temporary identifier for an optimistic shape.
type LocalID string

// RoomSlug is the URL-friendly name of a room.
type RoomSlug string

// ValidateUserID rejects empty or whitespace-padded user identifiers.
func ValidateUserID(id UserID) error {
	value := string(id)
	if value == "" || strings.TrimSpace(value) != value {
		return errors.New("invalid user id")
	}
	return nil
}

// ShapeRef pairs the temporary and durable identifiers of a shape record.
// Exactly one is set at creation; both are set after reconciliation. The
// zero value is invalid and the constructors are the only way to build one.
type ShapeRef struct {
	local   LocalID
	durable ChatID
}

// LocalRef builds a reference for an optimistic, not yet acknowledged shape.
func LocalRef(id LocalID) ShapeRef {
	return ShapeRef{local: id}
}

// DurableRef builds a reference for a shape known only by its durable id.
func DurableRef(id ChatID) ShapeRef {
	return ShapeRef{durable: id}
}

// Local returns the temporary identifier, if any.
func (r ShapeRef) Local() (LocalID, bool) {
	return r.local, r.local != ""
}

// Durable returns the durable identifier, if any.
func (r ShapeRef) Durable() (ChatID, bool) {
	return r.durable, r.durable != 0
}

// Valid reports whether at least one identifier is set.
func (r ShapeRef) Valid() bool {
	return r.local != "" || r.durable != 0
}

// WithDurable attaches the durable id assigned by the server, keeping the
// local id for traceability.
func (r ShapeRef) WithDurable(id ChatID) ShapeRef {
	r.durable = id
	return r
}
