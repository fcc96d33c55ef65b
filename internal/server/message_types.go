package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

const (
	// Client to server messages
	MessageTypeAuth   MessageType = "auth"
	MessageTypeStart  MessageType = "start"
	MessageTypeWatch  MessageType = "watch"
	MessageTypeAction MessageType = "action"

	// Server to client messages
	MessageTypeAuthResponse   MessageType = "auth_response"
	MessageTypeSessionView    MessageType = "session_view"
	MessageTypeSessionExpired MessageType = "session_expired"
	MessageTypeStatus         MessageType = "status"
	MessageTypeError          MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Error codes carried by MessageTypeError.
const (
	CodeInvalidMessage   = "invalid_message"
	CodeUnknownType      = "unknown_message_type"
	CodeAuthFailed       = "auth_failed"
	CodeAuthUnavailable  = "auth_unavailable"
	CodeNotAuthenticated = "not_authenticated"
	CodeNotOwner         = "not_owner"
	CodeNoActiveSession  = "no_active_session"
	CodeOnCooldown       = "on_cooldown"
	CodeAlreadyActive    = "already_active"
	CodeInvalidMove      = "invalid_move"
	CodeStillActive      = "still_active"
	CodeInternal         = "internal_error"
)
