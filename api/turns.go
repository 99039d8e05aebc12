package api

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/esmeralda-med/esmeralda/chat"
	"github.com/esmeralda-med/esmeralda/domain"
	"github.com/esmeralda-med/esmeralda/store"
)

// TurnRequest is the submit-turn request body. ImageData is base64.
type TurnRequest struct {
	Text      string `json:"text"`
	ImageData string `json:"image_data,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
}

// SubmitTurn runs one turn for a session and blocks until it settles.
// POST /v1/sessions/:session_id/turns
func (h *Handler) SubmitTurn(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	var req TurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	var image *domain.Image
	if req.ImageData != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageData)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "image_data is not valid base64"})
		}
		mimeType := req.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		image = &domain.Image{Data: data, MimeType: mimeType}
	}

	result, err := h.svc.SubmitTurn(ctx, sessionID, req.Text, image)
	switch {
	case errors.Is(err, chat.ErrEmptyTurn):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "turn needs text or an image"})
	case errors.Is(err, chat.ErrTurnInFlight):
		return c.JSON(http.StatusConflict, map[string]string{"error": "a turn is already in flight"})
	case errors.Is(err, store.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	case err != nil:
		log.Error().Err(err).Msg("failed to submit turn")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to submit turn"})
	}

	return c.JSON(http.StatusOK, result)
}
