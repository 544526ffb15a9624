package configstore

import (
	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/corebus"
)

// Server exposes Store's read/write contract on the core-bus, grounded on
// spec.md §6's `/aws/ggl/ggconfigd` read/write RPCs.
type Server struct {
	store *Store
}

// NewServer constructs a configstore Server bound to store.
func NewServer(store *Store) *Server {
	return &Server{store: store}
}

// Register installs this server's handlers onto bus.
func (s *Server) Register(bus *corebus.Server) {
	bus.RegisterHandler("read", s.read)
	bus.RegisterHandler("write", s.write)
}

func keyPathParam(params corert.Value) ([]string, error) {
	v, ok := corert.MapGet(params.Map, corert.Str("key_path"))
	if !ok || v.Kind != corert.KindList {
		return nil, corert.NewErr("configd_key_path", corert.KindInvalid, "key_path must be a list of strings")
	}
	path := make([]string, len(v.List))
	for i, e := range v.List {
		if e.Kind != corert.KindBuf {
			return nil, corert.NewErr("configd_key_path", corert.KindInvalid, "key_path entries must be strings")
		}
		path[i] = e.Buf.String()
	}
	if len(path) == 0 {
		return nil, corert.NewErr("configd_key_path", corert.KindInvalid, "key_path must not be empty")
	}
	return path, nil
}

func (s *Server) read(_ string, params corert.Value) (corert.Value, error) {
	keyPath, err := keyPathParam(params)
	if err != nil {
		return corert.Null(), err
	}
	return s.store.Read(keyPath)
}

func (s *Server) write(_ string, params corert.Value) (corert.Value, error) {
	keyPath, err := keyPathParam(params)
	if err != nil {
		return corert.Null(), err
	}
	value, ok := corert.MapGet(params.Map, corert.Str("value"))
	if !ok {
		return corert.Null(), corert.NewErr("configd_write", corert.KindInvalid, "value required")
	}
	var timeStamp int64
	if ts, ok := corert.MapGet(params.Map, corert.Str("timeStamp")); ok && ts.Kind == corert.KindI64 {
		timeStamp = ts.I
	}
	return corert.Null(), s.store.Write(keyPath, value, timeStamp)
}
