package schema

import "time"

// HTTP API payloads.

// SignupRequest creates a user account.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SignupResponse reports the created user.
type SignupResponse struct {
	UserID UserID `json:"userId"`
}

// SigninRequest authenticates a user.
type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTP     string `json:"totp,omitempty"`
}

// SigninResponse carries the bearer token attached to subsequent HTTP calls
// and the socket handshake.
type SigninResponse struct {
	Token string `json:"token"`
}

// CreateRoomRequest creates a room owned by the caller.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// CreateRoomResponse reports the created room id.
type CreateRoomResponse struct {
	RoomID RoomID `json:"roomId"`
}

// RoomInfo describes a room.
type RoomInfo struct {
	ID        RoomID    `json:"id"`
	Slug      RoomSlug  `json:"slug"`
	AdminID   UserID    `json:"adminId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListRoomsResponse reports the caller's rooms.
type ListRoomsResponse struct {
	Rooms []RoomInfo `json:"rooms"`
}

// RoomResponse reports a single room looked up by slug.
type RoomResponse struct {
	Room *RoomInfo `json:"room"`
}

// ChatEntry is one persisted log entry as served over HTTP. Message is the
// raw payload as appended; consumers decode and drop malformed entries.
type ChatEntry struct {
	ID      ChatID `json:"id"`
	RoomID  RoomID `json:"roomId"`
	UserID  UserID `json:"userId"`
	Message string `json:"message"`
}

// ChatsResponse reports a room's log, newest first.
type ChatsResponse struct {
	Messages []ChatEntry `json:"messages"`
}

// UpdateChatRequest replaces a log entry's payload wholesale.
type UpdateChatRequest struct {
	Message string `json:"message"`
}

// StatusResponse reports success for delete/update operations.
type StatusResponse struct {
	Success bool `json:"success"`
}
