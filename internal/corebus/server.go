package corebus

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/interfaces"
	"github.com/vaneuver/corert/internal/logging"
)

// HandlerFunc answers a call or notify. method is the dispatched method
// name; params is the request body. A notify's return value is discarded.
type HandlerFunc func(method string, params corert.Value) (corert.Value, error)

// SubscribeHandlerFunc starts a subscription. It must call emit at least
// once on success; it returns when the subscription is fully torn down
// (either emit returned an error because the client went away, or the
// unsubscribe channel passed in asked it to stop). unsubscribe is closed
// when the client closes the subscription or drops the connection.
type SubscribeHandlerFunc func(method string, params corert.Value, emit func(corert.Value) error, unsubscribe <-chan struct{}) error

// Server listens on a Unix domain socket and dispatches incoming calls,
// notifies, and subscribes to registered handlers, grounded on ggl-lib's
// ggl_listen/ggl_receive_callback/ggl_respond trio.
type Server struct {
	log      *logging.Logger
	observer interfaces.Observer

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	subs     map[string]SubscribeHandlerFunc

	listener net.Listener
}

// SetObserver attaches an operational-metrics sink; dispatch is unaffected
// when none is set.
func (s *Server) SetObserver(o interfaces.Observer) {
	s.observer = o
}

// NewServer creates a Server with an empty handler table.
func NewServer(log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	return &Server{
		log:      log.With("corebus"),
		handlers: make(map[string]HandlerFunc),
		subs:     make(map[string]SubscribeHandlerFunc),
	}
}

// RegisterHandler binds method to fn for both call and notify dispatch.
func (s *Server) RegisterHandler(method string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// RegisterSubscribeHandler binds method to a subscription handler.
func (s *Server) RegisterSubscribeHandler(method string, fn SubscribeHandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[method] = fn
}

// Listen binds a Unix domain socket at path, removing any stale socket file
// first, and accepts connections until the listener is closed.
func (s *Server) Listen(path string) error {
	_ = os.Remove(path)

	l, err := net.Listen("unix", path)
	if err != nil {
		return corert.WrapErr("corebus_listen", corert.NewErr("corebus_listen", corert.KindFailure, err.Error()))
	}
	s.listener = l
	s.log.Infof("listening on %s", path)

	for {
		conn, err := l.Accept()
		if err != nil {
			return corert.WrapErr("corebus_accept", toIOErr(err))
		}
		go s.serveConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// pendingSub tracks an active server-side subscription so a close frame
// from the client can unblock its handler.
type pendingSub struct {
	cancel chan struct{}
	once   sync.Once
}

func (p *pendingSub) stop() {
	p.once.Do(func() { close(p.cancel) })
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(f frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return writeFrame(conn, f)
	}

	var subMu sync.Mutex
	activeSubs := make(map[uint64]*pendingSub)

	for {
		f, err := readFrame(conn)
		if err != nil {
			subMu.Lock()
			for _, p := range activeSubs {
				p.stop()
			}
			subMu.Unlock()
			return
		}

		switch f.kind {
		case frameNotify:
			s.mu.RLock()
			h, ok := s.handlers[f.env.Method]
			s.mu.RUnlock()
			if ok {
				go func() { _, _ = h(f.env.Method, fromWire(f.env.Params)) }()
			}

		case frameCall:
			s.mu.RLock()
			h, ok := s.handlers[f.env.Method]
			s.mu.RUnlock()
			reqID := f.env.ReqID
			go func(method string, params any) {
				start := time.Now()
				if !ok {
					if s.observer != nil {
						s.observer.RecordRequest(uint64(time.Since(start)), false)
					}
					_ = write(errorResponse(reqID, corert.NewErr(method, corert.KindUnsupported, "no such method")))
					return
				}
				result, err := h(method, fromWire(params))
				if s.observer != nil {
					s.observer.RecordRequest(uint64(time.Since(start)), err == nil)
				}
				_ = write(responseFrame(reqID, result, err))
			}(f.env.Method, f.env.Params)

		case frameSubCall:
			s.mu.RLock()
			h, ok := s.subs[f.env.Method]
			s.mu.RUnlock()
			reqID := f.env.ReqID
			if !ok {
				_ = write(subEventFrame(reqID, corert.Null(), corert.NewErr(f.env.Method, corert.KindUnsupported, "no such subscription")))
				continue
			}
			p := &pendingSub{cancel: make(chan struct{})}
			subMu.Lock()
			activeSubs[reqID] = p
			count := len(activeSubs)
			subMu.Unlock()
			if s.observer != nil {
				s.observer.SetActiveSubscriptions(uint32(count))
			}
			go func(method string, params any) {
				defer func() {
					subMu.Lock()
					delete(activeSubs, reqID)
					count := len(activeSubs)
					subMu.Unlock()
					if s.observer != nil {
						s.observer.SetActiveSubscriptions(uint32(count))
					}
				}()
				emit := func(v corert.Value) error {
					err := write(subEventFrame(reqID, v, nil))
					if s.observer != nil {
						s.observer.RecordDelivery(err == nil)
					}
					return err
				}
				if err := h(method, fromWire(params), emit, p.cancel); err != nil {
					_ = write(subEventFrame(reqID, corert.Null(), err))
				}
			}(f.env.Method, f.env.Params)

		case frameClose:
			subMu.Lock()
			if p, ok := activeSubs[f.env.ReqID]; ok {
				p.stop()
			}
			subMu.Unlock()
		}
	}
}

func errorResponse(reqID uint64, err error) frame {
	e := corert.WrapErr("corebus_dispatch", err)
	return frame{kind: frameResponse, env: envelope{ReqID: reqID, Kind: string(e.Kind), Msg: e.Msg}}
}

func responseFrame(reqID uint64, result corert.Value, err error) frame {
	if err != nil {
		return errorResponse(reqID, err)
	}
	return frame{kind: frameResponse, env: envelope{ReqID: reqID, Kind: string(corert.KindOK), Result: toWire(result)}}
}

func subEventFrame(reqID uint64, result corert.Value, err error) frame {
	if err != nil {
		e := corert.WrapErr("corebus_subscribe", err)
		return frame{kind: frameSubEvent, env: envelope{ReqID: reqID, Kind: string(e.Kind), Msg: e.Msg}}
	}
	return frame{kind: frameSubEvent, env: envelope{ReqID: reqID, Kind: string(corert.KindOK), Result: toWire(result)}}
}
