package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/esmeralda-med/esmeralda/domain"
	"github.com/esmeralda-med/esmeralda/store"
)

// GetSessionMessages returns the most recent messages for a session.
// A before cursor (message_id) pages further back in the log.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 50
	}

	session, messages, err := h.svc.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to get messages")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get messages"})
	}

	if before := c.QueryParam("before"); before != "" {
		for i, msg := range messages {
			if msg.MessageID == before {
				messages = messages[:i]
				break
			}
		}
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": session.SessionID,
		"messages":   messages,
		"has_more":   hasMore,
	})
}
