package corebus

import (
	"context"
	"net"
	"sync"

	"github.com/vaneuver/corert"
)

// pendingCall is the rendezvous point a waiting Call/Subscribe blocks on.
type pendingCall struct {
	resp chan frame
}

// Client is a core-bus connection to a single server socket, grounded on
// ggl-lib's ggl_connect/ggl_call/ggl_notify client interface.
type Client struct {
	conn net.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]*pendingCall
	subs    map[uint64]chan frame
	closed  bool
}

// Connect opens a connection to the core-bus server listening at path.
func Connect(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, corert.WrapErr("corebus_connect", corert.NewErr("corebus_connect", corert.KindNoConn, err.Error()))
	}
	c := &Client{
		conn:    conn,
		pending: make(map[uint64]*pendingCall),
		subs:    make(map[uint64]chan frame),
	}
	go c.readLoop()
	return c, nil
}

// newClientForConn wraps an already-established connection (used by the
// in-memory mock transport, where Connect's Unix-socket dial doesn't apply).
func newClientForConn(conn net.Conn) *Client {
	c := &Client{
		conn:    conn,
		pending: make(map[uint64]*pendingCall),
		subs:    make(map[uint64]chan frame),
	}
	go c.readLoop()
	return c
}

// Close shuts down the connection, unblocking any in-flight Call with a
// NOCONN error and closing the Events channel of every open Subscription.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		f, err := readFrame(c.conn)
		if err != nil {
			c.failAllPending()
			return
		}
		switch f.kind {
		case frameResponse:
			c.mu.Lock()
			p, ok := c.pending[f.env.ReqID]
			delete(c.pending, f.env.ReqID)
			c.mu.Unlock()
			if ok {
				p.resp <- f
			}
		case frameSubEvent:
			c.mu.Lock()
			ch, ok := c.subs[f.env.ReqID]
			c.mu.Unlock()
			if ok {
				ch <- f
			}
		}
	}
}

func (c *Client) failAllPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, p := range c.pending {
		close(p.resp)
		delete(c.pending, id)
	}
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

func (c *Client) write(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFrame(c.conn, f)
}

// Call makes an RPC call and blocks until a response arrives, ctx is
// cancelled, or the connection drops. A cancelled context surfaces as
// KindRetry, mirroring the timeout-as-RETRY/BUSY convention used across the
// transport.
func (c *Client) Call(ctx context.Context, method string, params corert.Value) (corert.Value, error) {
	reqID := uint64(nextHandle())
	p := &pendingCall{resp: make(chan frame, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return corert.Null(), corert.NewErr("corebus_call", corert.KindNoConn, "connection closed")
	}
	c.pending[reqID] = p
	c.mu.Unlock()

	if err := c.write(frame{kind: frameCall, env: envelope{ReqID: reqID, Method: method, Params: toWire(params)}}); err != nil {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
		return corert.Null(), err
	}

	select {
	case f, ok := <-p.resp:
		if !ok {
			return corert.Null(), corert.NewErr("corebus_call", corert.KindNoConn, "connection closed while waiting for response")
		}
		return decodeResult(f.env)
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
		return corert.Null(), corert.NewErr("corebus_call", corert.KindRetry, "call cancelled")
	}
}

// Notify sends a one-way message with no response expected.
func (c *Client) Notify(method string, params corert.Value) error {
	return c.write(frame{kind: frameNotify, env: envelope{Method: method, Params: toWire(params)}})
}

// Subscription is a live server-side stream the client is receiving events
// from. Events() yields values until the subscription ends (server close,
// Close call, or connection drop, at which point the channel closes).
type Subscription struct {
	client *Client
	reqID  uint64
	events chan corert.Value
	errMu  sync.Mutex
	err    error
}

// Events returns the channel events are delivered on.
func (s *Subscription) Events() <-chan corert.Value {
	return s.events
}

// Err returns the terminal error the subscription ended with, if any. Only
// meaningful after Events() has been drained (closed).
func (s *Subscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close ends the subscription locally and notifies the server so it can
// tear down its handler goroutine. Safe to call more than once.
func (s *Subscription) Close() error {
	s.client.mu.Lock()
	ch, ok := s.client.subs[s.reqID]
	if ok {
		delete(s.client.subs, s.reqID)
	}
	s.client.mu.Unlock()
	if ok {
		close(ch)
	}
	return s.client.write(frame{kind: frameClose, env: envelope{ReqID: s.reqID}})
}

// Subscribe opens a subscription to method, returning as soon as the
// request has been written; it does not wait for the server's first event.
// A server-side rejection arrives later as the subscription's Err, with
// Events closed.
func (c *Client) Subscribe(ctx context.Context, method string, params corert.Value) (*Subscription, error) {
	reqID := uint64(nextHandle())
	raw := make(chan frame, 16)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, corert.NewErr("corebus_subscribe", corert.KindNoConn, "connection closed")
	}
	c.subs[reqID] = raw
	c.mu.Unlock()

	if err := c.write(frame{kind: frameSubCall, env: envelope{ReqID: reqID, Method: method, Params: toWire(params)}}); err != nil {
		c.mu.Lock()
		delete(c.subs, reqID)
		c.mu.Unlock()
		return nil, err
	}

	sub := &Subscription{client: c, reqID: reqID, events: make(chan corert.Value, 16)}
	go sub.pump(raw)
	return sub, nil
}

func (s *Subscription) pump(raw <-chan frame) {
	defer close(s.events)
	for f := range raw {
		v, err := decodeResult(f.env)
		if err != nil {
			s.errMu.Lock()
			s.err = err
			s.errMu.Unlock()
			return
		}
		s.events <- v
	}
}

func decodeResult(env envelope) (corert.Value, error) {
	if corert.Kind(env.Kind) != corert.KindOK {
		return corert.Null(), corert.NewErr("corebus_call", corert.Kind(env.Kind), env.Msg)
	}
	return fromWire(env.Result), nil
}
