// Package http provides the HTTP server implementation for the tutor.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/leetmentor/internal/observability"
	"github.com/xiaot623/leetmentor/internal/service"
	v1 "github.com/xiaot623/leetmentor/internal/transport/http/v1"
)

// NewServer creates and configures the client-facing HTTP server. rpc, when
// not nil, is mounted at /rpc.
func NewServer(svc *service.Service, rpc http.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(requestContext)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	if rpc != nil {
		e.GET("/rpc", echo.WrapHandler(rpc))
	}

	return e
}

// requestContext copies the request id into the request context for the
// service loggers.
func requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(observability.WithRequestID(req.Context(), id)))
		}
		return next(c)
	}
}
