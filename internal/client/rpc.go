package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	wsstream "github.com/sourcegraph/jsonrpc2/websocket"

	"github.com/xiaot623/leetmentor/internal/domain"
)

// RPCAPI calls the JSON-RPC methods over one WebSocket connection.
type RPCAPI struct {
	conn *jsonrpc2.Conn
}

// DialRPC connects to the /rpc endpoint. addr may be an http(s) or ws(s)
// URL.
func DialRPC(ctx context.Context, addr string) (*RPCAPI, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, toWebSocketURL(addr), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	conn := jsonrpc2.NewConn(context.Background(), wsstream.NewObjectStream(ws), noopHandler{})
	return &RPCAPI{conn: conn}, nil
}

// Close closes the connection.
func (a *RPCAPI) Close() error {
	return a.conn.Close()
}

// StartSession calls session.start.
func (a *RPCAPI) StartSession(ctx context.Context, leetCodeURL string) (*domain.StartSessionResponse, error) {
	var resp domain.StartSessionResponse
	if err := a.call(ctx, "session.start", domain.StartSessionRequest{LeetCodeURL: leetCodeURL}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage calls session.message.
func (a *RPCAPI) SendMessage(ctx context.Context, req domain.MessageRequest) (string, error) {
	var resp domain.MessageResponse
	if err := a.call(ctx, "session.message", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Progress calls session.progress.
func (a *RPCAPI) Progress(ctx context.Context, sessionID string) (*domain.ProgressResponse, error) {
	var resp domain.ProgressResponse
	if err := a.call(ctx, "session.progress", domain.ProgressRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *RPCAPI) call(ctx context.Context, method string, params, result interface{}) error {
	err := a.conn.Call(ctx, method, params, result)
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		status := http.StatusBadRequest
		if rpcErr.Code == jsonrpc2.CodeInternalError {
			status = http.StatusInternalServerError
		}
		return &APIError{Status: status, Message: rpcErr.Message}
	}
	return err
}

func toWebSocketURL(addr string) string {
	addr = strings.TrimSuffix(addr, "/")
	switch {
	case strings.HasPrefix(addr, "https://"):
		addr = "wss://" + strings.TrimPrefix(addr, "https://")
	case strings.HasPrefix(addr, "http://"):
		addr = "ws://" + strings.TrimPrefix(addr, "http://")
	}
	if !strings.HasSuffix(addr, "/rpc") {
		addr += "/rpc"
	}
	return addr
}

// noopHandler ignores server-initiated requests; the server sends none.
type noopHandler struct{}

func (noopHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {}
