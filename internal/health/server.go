package health

import (
	"context"

	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/corebus"
)

// Server exposes the health subsystem's core-bus methods, grounded on
// bus_server.c's get_status/update_status/get_health/restart_component
// handler registrations.
type Server struct {
	client   *Client
	watcher  *SubscriptionWatcher
	notifier Notifier
}

// NewServer constructs a health Server bound to client and watcher, using
// notifier for status-update dispatch (ExecNotifier{} in production).
func NewServer(client *Client, watcher *SubscriptionWatcher, notifier Notifier) *Server {
	return &Server{client: client, watcher: watcher, notifier: notifier}
}

// Register installs this server's handlers onto bus.
func (s *Server) Register(bus *corebus.Server) {
	bus.RegisterHandler("get_status", s.getStatus)
	bus.RegisterHandler("update_status", s.updateStatus)
	bus.RegisterHandler("get_health", s.getHealth)
	bus.RegisterHandler("restart_component", s.restartComponent)
	bus.RegisterSubscribeHandler("subscribe_to_lifecycle_completion", s.subscribeToLifecycleCompletion)
}

func stringParam(params corert.Value, key string) (string, bool) {
	v, ok := corert.MapGet(params.Map, corert.Str(key))
	if !ok || v.Kind != corert.KindBuf {
		return "", false
	}
	return v.Buf.String(), true
}

func (s *Server) getStatus(_ string, params corert.Value) (corert.Value, error) {
	component, ok := stringParam(params, "component_name")
	if !ok {
		return corert.Null(), corert.NewErr("get_status", corert.KindInvalid, "component_name required")
	}

	state, err := s.client.GetLifecycleState(context.Background(), component)
	if err != nil {
		return corert.Null(), err
	}

	return corert.MapVal([]corert.KV{
		{Key: corert.Str("component_name"), Val: corert.StrVal(component)},
		{Key: corert.Str("lifecycle_state"), Val: corert.StrVal(string(state))},
	}), nil
}

func (s *Server) updateStatus(_ string, params corert.Value) (corert.Value, error) {
	component, ok := stringParam(params, "component_name")
	if !ok {
		return corert.Null(), corert.NewErr("update_status", corert.KindInvalid, "component_name required")
	}
	stateStr, ok := stringParam(params, "lifecycle_state")
	if !ok {
		return corert.Null(), corert.NewErr("update_status", corert.KindInvalid, "lifecycle_state required")
	}

	err := UpdateStatus(context.Background(), s.notifier, component, LifecycleState(stateStr))
	return corert.Null(), err
}

func (s *Server) getHealth(_ string, _ corert.Value) (corert.Value, error) {
	_, err := s.client.GetLifecycleState(context.Background(), "gghealthd")
	status := "HEALTHY"
	if err != nil {
		status = "UNHEALTHY"
	}
	return corert.MapVal([]corert.KV{
		{Key: corert.Str("health_status"), Val: corert.StrVal(status)},
	}), nil
}

func (s *Server) restartComponent(_ string, params corert.Value) (corert.Value, error) {
	component, ok := stringParam(params, "component_name")
	if !ok {
		return corert.Null(), corert.NewErr("restart_component", corert.KindInvalid, "component_name required")
	}
	return corert.Null(), s.client.RestartComponent(context.Background(), component)
}

func (s *Server) subscribeToLifecycleCompletion(_ string, params corert.Value, emit func(corert.Value) error, unsubscribe <-chan struct{}) error {
	component, ok := stringParam(params, "component_name")
	if !ok {
		return corert.NewErr("subscribe_to_lifecycle_completion", corert.KindInvalid, "component_name required")
	}

	events, cancel, ok := s.watcher.Subscribe(context.Background(), component)
	if !ok {
		return corert.NewErr("subscribe_to_lifecycle_completion", corert.KindNoMem, "subscription table is full")
	}

	select {
	case <-unsubscribe:
		cancel()
		return nil
	case ev, ok := <-events:
		if !ok {
			return nil
		}
		return emit(corert.MapVal([]corert.KV{
			{Key: corert.Str("component_name"), Val: corert.StrVal(ev.Component)},
			{Key: corert.Str("lifecycle_state"), Val: corert.StrVal(string(ev.State))},
		}))
	}
}
