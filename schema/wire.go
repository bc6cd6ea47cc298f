package schema

import (
	"encoding/json"
	"fmt"
)

// MessageType is the top-level type of a socket envelope.
type MessageType string

const (
	// MessageJoinRoom adds the connection to a room's membership set.
	MessageJoinRoom MessageType = "join_room"
	// MessageLeaveRoom removes the connection from a room's membership set.
	MessageLeaveRoom MessageType = "leave_room"
	// MessageChat carries a shape mutation, embedded as a JSON string.
	MessageChat MessageType = "chat"
)

// ClientMessage is the envelope a client sends over the socket.
type ClientMessage struct {
	Type    MessageType `json:"type"`
	RoomID  RoomID      `json:"roomId"`
	Message string      `json:"message,omitempty"`
}

// ServerMessage is the envelope the server fans out to room members. For
// chat messages the server stamps the durable ChatID assigned by the log
// append alongside the original embedded message.
type ServerMessage struct {
	Type    MessageType `json:"type"`
	RoomID  RoomID      `json:"roomId"`
	ChatID  ChatID      `json:"chatId,omitempty"`
	Message string      `json:"message"`
}

// ChatPayload is the JSON document embedded in a chat envelope's message
// string. Exactly one of Shape, DeleteChatID, or UpdateShape is set.
type ChatPayload struct {
	Shape        json.RawMessage `json:"shape,omitempty"`
	LocalID      LocalID         `json:"localId,omitempty"`
	DeleteChatID ChatID          `json:"deleteChatId,omitempty"`
	UpdateShape  *ShapeUpdate    `json:"updateShape,omitempty"`
}

// ShapeUpdate replaces the payload of an existing log entry wholesale.
type ShapeUpdate struct {
	ChatID ChatID          `json:"chatId"`
	Shape  json.RawMessage `json:"shape"`
}

// ParseChatPayload decodes the embedded message of a chat envelope.
func ParseChatPayload(message string) (ChatPayload, error) {
	var payload ChatPayload
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		return ChatPayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return payload, nil
}

// EncodeCreatePayload builds the embedded message for a shape creation.
func EncodeCreatePayload(shape Shape, localID LocalID) (string, error) {
	raw, err := EncodeShape(shape)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(ChatPayload{Shape: raw, LocalID: localID})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EncodeShapePayload builds the bare shape document stored in the log.
// Unlike a creation envelope it carries no local id; persisted entries are
// addressed by their durable id alone.
func EncodeShapePayload(shape Shape) (string, error) {
	raw, err := EncodeShape(shape)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(ChatPayload{Shape: raw})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EncodeDeletePayload builds the embedded message for a deletion by durable id.
func EncodeDeletePayload(chatID ChatID) (string, error) {
	data, err := json.Marshal(ChatPayload{DeleteChatID: chatID})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EncodeUpdatePayload builds the embedded message for an in-place update.
func EncodeUpdatePayload(chatID ChatID, shape Shape) (string, error) {
	raw, err := EncodeShape(shape)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(ChatPayload{UpdateShape: &ShapeUpdate{ChatID: chatID, Shape: raw}})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
