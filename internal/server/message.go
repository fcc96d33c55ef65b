package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lox/ringside/internal/session"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message stamped with at.
func NewMessage(messageType MessageType, data any, at time.Time) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return &Message{
		Type:      messageType,
		Data:      raw,
		Timestamp: at,
	}, nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return errors.New("missing data")
	}
	return json.Unmarshal(m.Data, v)
}

// Client → Server Messages

type AuthData struct {
	Player string `json:"player"`
	Token  string `json:"token,omitempty"`
}

type WatchData struct {
	Owner string `json:"owner"`
}

// ActionData is a button press. Owner defaults to the authenticated player.
type ActionData struct {
	Owner     string             `json:"owner,omitempty"`
	SessionID string             `json:"sessionId,omitempty"`
	Kind      session.ActionKind `json:"kind"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success bool   `json:"success"`
	Player  string `json:"player,omitempty"`
	Admin   bool   `json:"admin,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// RetryAfterMs is set for cooldown rejections.
	RetryAfterMs int64 `json:"retryAfterMs,omitempty"`
}

type StatusData struct {
	Message string `json:"message"`
}

// SessionsData is the admin listing of live matches.
type SessionsData struct {
	Count  int      `json:"count"`
	Owners []string `json:"owners"`
}
