// Package rpc exposes the session service as JSON-RPC 2.0 over WebSocket.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	wsstream "github.com/sourcegraph/jsonrpc2/websocket"

	"github.com/xiaot623/leetmentor/internal/domain"
	"github.com/xiaot623/leetmentor/internal/observability"
	"github.com/xiaot623/leetmentor/internal/service"
)

// Method names.
const (
	MethodStart    = "session.start"
	MethodMessage  = "session.message"
	MethodProgress = "session.progress"
	MethodHistory  = "session.history"
)

// Server upgrades HTTP requests and serves one JSON-RPC connection per
// socket.
type Server struct {
	service  *service.Service
	upgrader websocket.Upgrader
	hub      *hub
}

// NewServer creates a new RPC server bound to the session service.
func NewServer(svc *service.Service) *Server {
	return &Server{
		service: svc,
		hub:     newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade websocket", "error", err)
		return
	}

	connID := uuid.NewString()
	log := observability.LoggerFromContext(r.Context()).With("conn_id", connID)
	log.Info("new websocket connection")

	ctx := observability.WithRequestID(context.Background(), connID)
	conn := jsonrpc2.NewConn(ctx, wsstream.NewObjectStream(ws), jsonrpc2.AsyncHandler(&handler{service: s.service, log: log}))
	if !s.hub.register(connID, conn) {
		conn.Close()
		return
	}
	defer s.hub.unregister(connID)

	<-conn.DisconnectNotify()
	log.Info("connection closed")
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	return s.hub.count()
}

// Close disconnects every client and rejects later upgrades.
func (s *Server) Close() {
	s.hub.closeAll()
}

type handler struct {
	service *service.Service
	log     *slog.Logger
}

func (h *handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		return
	}
	h.log.Debug("received request", "method", req.Method, "id", req.ID)

	var (
		result interface{}
		err    error
	)
	switch req.Method {
	case MethodStart:
		result, err = h.start(ctx, req)
	case MethodMessage:
		result, err = h.message(ctx, req)
	case MethodProgress:
		result, err = h.progress(ctx, req)
	case MethodHistory:
		result, err = h.history(ctx, req)
	default:
		err = &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
	}

	if err != nil {
		if replyErr := conn.ReplyWithError(ctx, req.ID, toRPCError(err)); replyErr != nil {
			h.log.Error("failed to send error response", "method", req.Method, "error", replyErr)
		}
		return
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.log.Error("failed to send response", "method", req.Method, "error", err)
	}
}

func (h *handler) start(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params domain.StartSessionRequest
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	res, err := h.service.StartSession(ctx, params.LeetCodeURL)
	if err != nil {
		return nil, err
	}
	return domain.StartSessionResponse{SessionID: res.SessionID, FirstMessage: res.FirstMessage}, nil
}

func (h *handler) message(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params domain.MessageRequest
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	reply, err := h.service.PostMessage(ctx, params.SessionID, params.Message, params.LeetCodeURL)
	if err != nil {
		return nil, err
	}
	return domain.MessageResponse{Response: reply}, nil
}

func (h *handler) progress(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params domain.ProgressRequest
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	p, err := h.service.GetProgress(ctx, params.SessionID)
	if err != nil {
		return nil, err
	}
	return domain.ProgressResponse{Progress: p.Label, MessageCount: p.MessageCount, LeetCodeURL: p.ProblemReference}, nil
}

func (h *handler) history(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params domain.HistoryRequest
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	hist, err := h.service.GetHistory(ctx, params.SessionID)
	if err != nil {
		return nil, err
	}
	return domain.HistoryResponse{History: hist.Turns, LeetCodeURL: hist.ProblemReference}, nil
}

func decodeParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "params are required"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
	}
	return nil
}

func toRPCError(err error) *jsonrpc2.Error {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var upErr *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "Invalid session"}
	case errors.Is(err, domain.ErrInvalidInput):
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	case errors.As(err, &upErr):
		e := &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: "Failed to communicate with the tutoring model"}
		e.SetError(map[string]interface{}{"details": upErr.Message, "status": upErr.Status})
		return e
	default:
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}
}
