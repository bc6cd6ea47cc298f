package schema

import "errors"

var (
	// ErrMalformedShape indicates a shape payload that cannot be decoded.
	ErrMalformedShape = errors.New("malformed shape payload")
	// ErrMalformedPayload indicates an embedded chat message that is not valid JSON.
	ErrMalformedPayload = errors.New("malformed chat payload")
	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a missing or unverifiable bearer token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUserExists indicates a signup against an existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound indicates an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrRoomExists indicates a room slug collision.
	ErrRoomExists = errors.New("room already exists")
	// ErrRoomNotFound indicates an unknown room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrChatNotFound indicates an unknown log entry.
	ErrChatNotFound = errors.New("chat not found")
	// ErrNotRoomAdmin indicates an operation reserved for the room owner.
	ErrNotRoomAdmin = errors.New("not room admin")
)
