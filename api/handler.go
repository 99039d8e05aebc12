// Package api provides HTTP handlers for the case tutor service.
package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/esmeralda-med/esmeralda/chat"
	"github.com/esmeralda-med/esmeralda/hub"
)

// Handler handles HTTP requests.
type Handler struct {
	svc      *chat.Service
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler. h may be nil when no websocket
// updates are wanted (tests).
func NewHandler(svc *chat.Service, h *hub.Hub) *Handler {
	return &Handler{
		svc: svc,
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Single-user local deployment, any origin may connect.
				return true
			},
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions", h.ListSessions)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.DELETE("/v1/sessions/:session_id", h.DeleteSession)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)
	e.POST("/v1/sessions/:session_id/turns", h.SubmitTurn)

	e.GET("/ws", h.HandleWebSocket)
	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
