// Package v1 provides the REST handlers used by the chat client.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/leetmentor/internal/domain"
	"github.com/xiaot623/leetmentor/internal/observability"
	"github.com/xiaot623/leetmentor/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the chat routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/start-session", h.StartSession)
	e.POST("/message", h.PostMessage)
	e.GET("/progress/:sessionId", h.GetProgress)
	e.GET("/history/:sessionId", h.GetHistory)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// StartSession creates a tutoring session.
// POST /start-session
func (h *Handler) StartSession(c echo.Context) error {
	var req domain.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid request body"})
	}
	if req.LeetCodeURL == "" {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "LeetCode URL is required"})
	}

	res, err := h.service.StartSession(c.Request().Context(), req.LeetCodeURL)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, domain.StartSessionResponse{
		SessionID:    res.SessionID,
		FirstMessage: res.FirstMessage,
	})
}

// PostMessage sends one user message and returns the tutor's reply.
// POST /message
func (h *Handler) PostMessage(c echo.Context) error {
	var req domain.MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid request body"})
	}

	reply, err := h.service.PostMessage(c.Request().Context(), req.SessionID, req.Message, req.LeetCodeURL)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, domain.MessageResponse{Response: reply})
}

// GetProgress returns the progress label of a session.
// GET /progress/:sessionId
func (h *Handler) GetProgress(c echo.Context) error {
	p, err := h.service.GetProgress(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, domain.ProgressResponse{
		Progress:     p.Label,
		MessageCount: p.MessageCount,
		LeetCodeURL:  p.ProblemReference,
	})
}

// GetHistory returns the visible transcript of a session.
// GET /history/:sessionId
func (h *Handler) GetHistory(c echo.Context) error {
	hist, err := h.service.GetHistory(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, domain.HistoryResponse{
		History:     hist.Turns,
		LeetCodeURL: hist.ProblemReference,
	})
}

func writeError(c echo.Context, err error) error {
	var upErr *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Invalid session"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: err.Error()})
	case errors.As(err, &upErr):
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Failed to communicate with the tutoring model",
			Details: upErr.Message,
		})
	default:
		observability.LoggerFromContext(c.Request().Context()).Error("request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: err.Error()})
	}
}
