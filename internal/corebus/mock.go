package corebus

import (
	"net"
	"sync"

	"github.com/vaneuver/corert"
)

// NewMockTransport wires an in-memory Client directly to server via
// net.Pipe, for tests that want the full frame/codec path without a
// filesystem socket. The returned close func tears down both ends.
func NewMockTransport(server *Server) (*Client, func()) {
	serverConn, clientConn := net.Pipe()
	go server.serveConn(serverConn)
	client := newClientForConn(clientConn)
	return client, func() {
		_ = client.Close()
		_ = serverConn.Close()
	}
}

// MockHandlerSet is a call-counting handler table for tests, grounded on
// the teacher's MockBackend pattern of tracking invocations under a mutex
// for post-hoc assertions.
type MockHandlerSet struct {
	mu        sync.RWMutex
	callCount map[string]int
	results   map[string]corert.Value
	errs      map[string]error
}

// NewMockHandlerSet creates an empty counting handler table.
func NewMockHandlerSet() *MockHandlerSet {
	return &MockHandlerSet{
		callCount: make(map[string]int),
		results:   make(map[string]corert.Value),
		errs:      make(map[string]error),
	}
}

// SetResult configures the value (or error) method should answer with.
func (m *MockHandlerSet) SetResult(method string, v corert.Value, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[method] = v
	m.errs[method] = err
}

// CallCount returns how many times method has been invoked.
func (m *MockHandlerSet) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount[method]
}

// Reset clears all recorded call counts.
func (m *MockHandlerSet) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = make(map[string]int)
}

// Handler returns a HandlerFunc that records the call and answers with the
// configured result, registerable directly via Server.RegisterHandler.
func (m *MockHandlerSet) Handler() HandlerFunc {
	return func(method string, _ corert.Value) (corert.Value, error) {
		m.mu.Lock()
		m.callCount[method]++
		result := m.results[method]
		err := m.errs[method]
		m.mu.Unlock()
		return result, err
	}
}
