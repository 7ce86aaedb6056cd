package chat

import "errors"

// Room and membership failures reported by the Registry.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotMember    = errors.New("user is not a member of the room")
)

// Credential failures reported by the TokenVerifier. A connection that fails
// verification receives a single error event and is closed.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
)
