// Package history builds the backend-agnostic conversation window sent
// to a model on every turn: a frozen anchor turn, the most recent K
// messages of raw history, and the current outgoing turn.
package history

import "github.com/esmeralda-med/esmeralda/domain"

// Role is the backend-agnostic speaker tag. Per-backend serializers map
// RoleModel to whatever the wire calls the replying side ("model",
// "assistant").
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// AnchorPrefix tags the anchor turn as a permanent reference so the
// model cannot mistake it for an ordinary, truncatable message.
const AnchorPrefix = "[DADOS DO CASO INICIAL - REFERÊNCIA PERMANENTE]: "

// Turn is one entry of the formatted window.
type Turn struct {
	Role  Role
	Text  string
	Image *domain.Image
}

// Format maps a full message log to the window actually sent to a
// backend:
//
//  1. If anchorContext is set it becomes the first turn, prefixed with
//     AnchorPrefix, so the model keeps the patient's baseline even
//     after truncation.
//  2. The raw history is truncated to the most recent window messages;
//     older ones are silently discarded, never summarized.
//  3. Senders map to roles; text and image are both carried. A turn
//     with only an image is legal.
//
// The current outgoing turn is appended by the caller via Append and is
// never subject to truncation. Formatting is pure: the same inputs
// always yield the same window.
func Format(messages []domain.Message, anchorContext string, window int) []Turn {
	turns := make([]Turn, 0, len(messages)+1)

	if anchorContext != "" {
		turns = append(turns, Turn{
			Role: RoleUser,
			Text: AnchorPrefix + anchorContext,
		})
	}

	recent := messages
	if window > 0 && len(recent) > window {
		recent = recent[len(recent)-window:]
	}

	for _, msg := range recent {
		role := RoleModel
		if msg.Sender == domain.SenderUser {
			role = RoleUser
		}
		turns = append(turns, Turn{
			Role:  role,
			Text:  msg.Text,
			Image: msg.Image,
		})
	}

	return turns
}

// Append adds the current outgoing user turn to a formatted window.
func Append(turns []Turn, text string, image *domain.Image) []Turn {
	return append(turns, Turn{
		Role:  RoleUser,
		Text:  text,
		Image: image,
	})
}
