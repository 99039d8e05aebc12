package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/esmeralda-med/esmeralda/domain"
	"github.com/esmeralda-med/esmeralda/store"
)

// CreateSession creates a new empty session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.svc.CreateSession(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
	}
	return c.JSON(http.StatusCreated, session)
}

// ListSessions returns all sessions, newest first.
// GET /v1/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()

	sessions, err := h.svc.ListSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sessions")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// GetSession returns a session with its messages.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	session, messages, err := h.svc.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to get session")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get session"})
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"session":  session,
		"messages": messages,
	})
}

// DeleteSession removes a session. When the last session is deleted a
// fresh empty one is created and returned as the replacement.
// DELETE /v1/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	replacement, err := h.svc.DeleteSession(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to delete session")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete session"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"deleted":     sessionID,
		"replacement": replacement,
	})
}
