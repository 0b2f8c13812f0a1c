// Package httpapi exposes the chat and session HTTP endpoints.
//
// Callers are identified by the X-User-Id header, which the gateway
// sets after verifying the bearer token. The one exception is the
// public chat endpoint, which runs every request as the demo user.
package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chatgo-dev/chatgo/internal/chat"
	"github.com/chatgo-dev/chatgo/pkg/observability"
	"github.com/chatgo-dev/chatgo/pkg/session"
)

// UserIDHeader carries the authenticated user identity.
const UserIDHeader = "X-User-Id"

// PublicUser is the identity assigned to unauthenticated public chat.
const PublicUser = "demo"

// Handler handles HTTP requests for the session service.
type Handler struct {
	sessions     *session.Manager
	orchestrator *chat.Orchestrator
}

// NewHandler creates a new handler.
func NewHandler(sessions *session.Manager, orchestrator *chat.Orchestrator) *Handler {
	return &Handler{
		sessions:     sessions,
		orchestrator: orchestrator,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/chat/message", h.SendMessage)
	e.POST("/api/chat/message/public", h.SendMessagePublic)

	e.POST("/api/sessions", h.CreateSession)
	e.GET("/api/sessions", h.ListSessions)
	e.GET("/api/sessions/:session_id", h.GetSession)
	e.DELETE("/api/sessions/:session_id", h.TerminateSession)

	e.GET("/health", h.Health)
}

// Health returns a basic liveness response. Detailed checks live on
// the observability server.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// userID extracts the caller identity from the X-User-Id header. A
// missing header yields an HTTPError so the caller's early return
// actually aborts the request instead of running it as the empty user.
func userID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(UserIDHeader)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	return id, nil
}

// SendMessage runs one chat turn for the authenticated user.
// POST /api/chat/message
func (h *Handler) SendMessage(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	return h.processMessage(c, uid)
}

// SendMessagePublic runs one chat turn as the demo user, without
// authentication.
// POST /api/chat/message/public
func (h *Handler) SendMessagePublic(c echo.Context) error {
	return h.processMessage(c, PublicUser)
}

func (h *Handler) processMessage(c echo.Context, uid string) error {
	var req chat.TurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	resp, err := h.orchestrator.ProcessTurn(c.Request().Context(), uid, req)
	if err != nil {
		log.Printf("ERROR: chat turn failed for user %s: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to process message"})
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateSession starts a fresh session for the authenticated user.
// POST /api/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	sess, err := h.sessions.Create(c.Request().Context(), uid)
	if err != nil {
		log.Printf("ERROR: failed to create session for user %s: %v", uid, err)
		observability.RecordSessionOp("create", "error")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
	}
	observability.RecordSessionOp("create", "ok")
	return c.JSON(http.StatusOK, sess)
}

// GetSession returns one of the caller's sessions.
// GET /api/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	sess, err := h.sessions.Get(c.Request().Context(), c.Param("session_id"), uid)
	if errors.Is(err, session.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	if err != nil {
		log.Printf("ERROR: failed to get session: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get session"})
	}
	return c.JSON(http.StatusOK, sess)
}

// ListSessions returns all of the caller's sessions.
// GET /api/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	sessions, err := h.sessions.ListByUser(c.Request().Context(), uid)
	if err != nil {
		log.Printf("ERROR: failed to list sessions for user %s: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

// TerminateSession marks one of the caller's sessions terminated.
// Terminating an unknown session succeeds, the operation is
// idempotent.
// DELETE /api/sessions/:session_id
func (h *Handler) TerminateSession(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	if err := h.sessions.Terminate(c.Request().Context(), c.Param("session_id"), uid); err != nil {
		log.Printf("ERROR: failed to terminate session: %v", err)
		observability.RecordSessionOp("terminate", "error")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to terminate session"})
	}
	observability.RecordSessionOp("terminate", "ok")
	return c.NoContent(http.StatusOK)
}

// MetricsMiddleware records request counts and latency per route.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			observability.RecordHTTPRequest(
				c.Request().Method, c.Path(),
				c.Response().Status, time.Since(start),
			)
			return err
		}
	}
}
