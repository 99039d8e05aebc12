// Package domain defines the core domain models for the case tutor.
package domain

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderModel Sender = "model"
)

// TurnStatus represents the lifecycle state of a turn.
type TurnStatus string

const (
	TurnPending TurnStatus = "PENDING"
	TurnSettled TurnStatus = "SETTLED"
)

// PlaceholderTitle is the title of a session before its first message.
const PlaceholderTitle = "Novo Caso Clínico"

// Image is a binary attachment carried by a message.
type Image struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type"`
}

// Message is a single entry in a session's timeline. Messages are
// append-only and never edited in place.
type Message struct {
	MessageID string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Image     *Image    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasImage reports whether the message carries an attachment.
func (m *Message) HasImage() bool {
	return m.Image != nil && len(m.Image.Data) > 0
}

// Session represents one clinical case conversation.
//
// AnchorContext holds the initial case description separately so it can
// always be resent to the backend, even after the raw history has been
// truncated. It is frozen when the first message is sent and never
// recomputed afterwards.
type Session struct {
	SessionID     string    `json:"session_id"`
	Title         string    `json:"title"`
	AnchorContext string    `json:"anchor_context,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Turn tracks one request/response cycle through its two phases:
// pending (user message visible, reply outstanding) and settled
// (model reply appended, real or fallback).
type Turn struct {
	TurnID    string     `json:"turn_id"`
	SessionID string     `json:"session_id"`
	Status    TurnStatus `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}
