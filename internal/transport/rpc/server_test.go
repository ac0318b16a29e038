package rpc

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/leetmentor/internal/adapter/llm"
	"github.com/xiaot623/leetmentor/internal/domain"
	"github.com/xiaot623/leetmentor/internal/history"
	"github.com/xiaot623/leetmentor/internal/prompt"
	"github.com/xiaot623/leetmentor/internal/repository"
	"github.com/xiaot623/leetmentor/internal/service"
)

const twoSum = "https://leetcode.com/problems/two-sum"

type failingGateway struct{}

func (failingGateway) Send(ctx context.Context, payload history.Payload, sampling llm.SamplingConfig) (string, error) {
	return "", &domain.UpstreamError{Status: 500, Message: "internal"}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpc2.Error `json:"error,omitempty"`
}

type testEnv struct {
	t     *testing.T
	conn  *websocket.Conn
	reqID int
}

func newTestEnv(t *testing.T, gw llm.Gateway) *testEnv {
	t.Helper()
	svc := service.New(repository.NewMemoryStore(0), history.New(history.DefaultWindow, false), gw, nil, service.Options{})
	server := httptest.NewServer(NewServer(svc))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		server.Close()
	})
	return &testEnv{t: t, conn: conn}
}

func (e *testEnv) call(method string, params interface{}) rpcResponse {
	e.t.Helper()
	e.reqID++
	require.NoError(e.t, e.conn.WriteJSON(rpcRequest{JSONRPC: "2.0", ID: e.reqID, Method: method, Params: params}))

	require.NoError(e.t, e.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var resp rpcResponse
	require.NoError(e.t, e.conn.ReadJSON(&resp))
	assert.Equal(e.t, e.reqID, resp.ID)
	return resp
}

func (e *testEnv) start() string {
	e.t.Helper()
	resp := e.call(MethodStart, domain.StartSessionRequest{LeetCodeURL: twoSum})
	require.Nil(e.t, resp.Error)

	var res domain.StartSessionResponse
	require.NoError(e.t, json.Unmarshal(resp.Result, &res))
	return res.SessionID
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient())

	resp := env.call(MethodStart, map[string]string{"leetCodeUrl": twoSum})
	require.Nil(t, resp.Error)
	var started domain.StartSessionResponse
	require.NoError(t, json.Unmarshal(resp.Result, &started))
	assert.Equal(t, prompt.OpeningMessage, started.FirstMessage)

	resp = env.call(MethodMessage, domain.MessageRequest{SessionID: started.SessionID, Message: "two pointers?"})
	require.Nil(t, resp.Error)
	var msg domain.MessageResponse
	require.NoError(t, json.Unmarshal(resp.Result, &msg))
	assert.Contains(t, msg.Response, "two pointers?")

	resp = env.call(MethodProgress, domain.ProgressRequest{SessionID: started.SessionID})
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"progress":"initial","messageCount":1,"leetCodeUrl":"`+twoSum+`"}`, string(resp.Result))

	resp = env.call(MethodHistory, domain.HistoryRequest{SessionID: started.SessionID})
	require.Nil(t, resp.Error)
	var hist domain.HistoryResponse
	require.NoError(t, json.Unmarshal(resp.Result, &hist))
	assert.Len(t, hist.History, 3)
}

func TestInvalidParams(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient())

	resp := env.call(MethodStart, map[string]string{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, int64(jsonrpc2.CodeInvalidParams), resp.Error.Code)

	resp = env.call(MethodMessage, domain.MessageRequest{SessionID: "missing", Message: "hi"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, int64(jsonrpc2.CodeInvalidParams), resp.Error.Code)
	assert.Equal(t, "Invalid session", resp.Error.Message)

	resp = env.call(MethodProgress, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, int64(jsonrpc2.CodeInvalidParams), resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient())

	resp := env.call("session.delete", map[string]string{"sessionId": "x"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), resp.Error.Code)
}

func TestUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, failingGateway{})
	id := env.start()

	resp := env.call(MethodMessage, domain.MessageRequest{SessionID: id, Message: "hi"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, int64(jsonrpc2.CodeInternalError), resp.Error.Code)
	require.NotNil(t, resp.Error.Data)
	assert.Contains(t, string(*resp.Error.Data), "internal")
}

func TestCloseDisconnectsClients(t *testing.T) {
	svc := service.New(repository.NewMemoryStore(0), history.New(0, false), llm.NewMockClient(), nil, service.Options{})
	srv := NewServer(svc)
	server := httptest.NewServer(srv)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return srv.Connections() == 1 }, 2*time.Second, 10*time.Millisecond)

	srv.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return srv.Connections() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Later connections are turned away.
	late, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer late.Close()
	require.NoError(t, late.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = late.ReadMessage()
	assert.Error(t, err)
}
