package rpc

import (
	"log/slog"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
)

// hub tracks open JSON-RPC connections so shutdown can close sockets the
// HTTP server no longer owns after the upgrade.
type hub struct {
	mu          sync.Mutex
	connections map[string]*jsonrpc2.Conn
	closed      bool
}

func newHub() *hub {
	return &hub{connections: make(map[string]*jsonrpc2.Conn)}
}

// register adds conn. It returns false once the hub is closed.
func (h *hub) register(id string, conn *jsonrpc2.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.connections[id] = conn
	return true
}

func (h *hub) unregister(id string) {
	h.mu.Lock()
	delete(h.connections, id)
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

// closeAll closes every connection and refuses new ones.
func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	conns := make(map[string]*jsonrpc2.Conn, len(h.connections))
	for id, c := range h.connections {
		conns[id] = c
	}
	h.mu.Unlock()

	for id, c := range conns {
		if err := c.Close(); err != nil {
			slog.Debug("close connection", "conn_id", id, "error", err)
		}
	}
}
