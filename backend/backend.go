// Package backend provides the interchangeable strategies that carry a
// turn to a remote model and bring back the reply text.
package backend

import (
	"context"

	"github.com/esmeralda-med/esmeralda/domain"
)

// TurnRequest carries everything a strategy may need for one turn.
// History is the message log as it stood before the current user
// message was appended.
type TurnRequest struct {
	Text          string
	History       []domain.Message
	AnchorContext string
	Image         *domain.Image
}

// Backend is the common contract of all strategies. Send never fails:
// any transport error, malformed response or empty model output is
// logged and coerced into the strategy's fixed fallback string, so the
// caller always has a reply to append.
type Backend interface {
	Name() string
	Send(ctx context.Context, req TurnRequest) string
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
