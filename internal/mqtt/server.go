package mqtt

import (
	"context"

	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/constants"
	"github.com/vaneuver/corert/internal/corebus"
)

const maxSubscribeFilters = constants.MaxSubscribeFilters

// Server exposes the MQTT client's publish/subscribe/connection-status
// core-bus methods, grounded on iotcored's bus_server.c
// (rpc_publish/rpc_subscribe/rpc_get_status).
type Server struct {
	client *Client
}

// NewServer constructs an MQTT Server bound to client.
func NewServer(client *Client) *Server {
	return &Server{client: client}
}

// Register installs this server's handlers onto bus.
func (s *Server) Register(bus *corebus.Server) {
	bus.RegisterHandler("publish", s.publish)
	bus.RegisterSubscribeHandler("subscribe", s.subscribe)
	bus.RegisterSubscribeHandler("connection_status", s.connectionStatus)
}

func stringParam(params corert.Value, key string) (string, bool) {
	v, ok := corert.MapGet(params.Map, corert.Str(key))
	if !ok || v.Kind != corert.KindBuf {
		return "", false
	}
	return v.Buf.String(), true
}

func int64Param(params corert.Value, key string) (int64, bool) {
	v, ok := corert.MapGet(params.Map, corert.Str(key))
	if !ok || v.Kind != corert.KindI64 {
		return 0, false
	}
	return v.I, true
}

func boolParam(params corert.Value, key string) (bool, bool) {
	v, ok := corert.MapGet(params.Map, corert.Str(key))
	if !ok || v.Kind != corert.KindBool {
		return false, false
	}
	return v.B, true
}

func qosParam(params corert.Value) (byte, error) {
	n, ok := int64Param(params, "qos")
	if !ok {
		return 0, nil
	}
	if n < 0 || n > 2 {
		return 0, corert.NewErr("mqtt_publish", corert.KindInvalid, "qos out of range")
	}
	return byte(n), nil
}

func (s *Server) publish(_ string, params corert.Value) (corert.Value, error) {
	topic, ok := stringParam(params, "topic")
	if !ok {
		return corert.Null(), corert.NewErr("mqtt_publish", corert.KindInvalid, "topic required")
	}
	if len(topic) > 65535 {
		return corert.Null(), corert.NewErr("mqtt_publish", corert.KindRange, "topic too large")
	}
	var payload []byte
	if p, ok := stringParam(params, "payload"); ok {
		payload = []byte(p)
	}
	qos, err := qosParam(params)
	if err != nil {
		return corert.Null(), err
	}
	return corert.Null(), s.client.Publish(topic, payload, qos, false)
}

func topicFilters(params corert.Value) ([]string, error) {
	v, ok := corert.MapGet(params.Map, corert.Str("topic_filter"))
	if !ok {
		return nil, corert.NewErr("mqtt_subscribe", corert.KindInvalid, "topic_filter required")
	}
	switch v.Kind {
	case corert.KindBuf:
		return []string{v.Buf.String()}, nil
	case corert.KindList:
		if len(v.List) == 0 {
			return nil, corert.NewErr("mqtt_subscribe", corert.KindInvalid, "topic_filter list is empty")
		}
		if len(v.List) > maxSubscribeFilters {
			return nil, corert.NewErr("mqtt_subscribe", corert.KindUnsupported, "too many topic filters")
		}
		filters := make([]string, len(v.List))
		for i, item := range v.List {
			if item.Kind != corert.KindBuf {
				return nil, corert.NewErr("mqtt_subscribe", corert.KindInvalid, "topic_filter entries must be strings")
			}
			filters[i] = item.Buf.String()
		}
		return filters, nil
	default:
		return nil, corert.NewErr("mqtt_subscribe", corert.KindInvalid, "topic_filter must be a string or list of strings")
	}
}

// subscribe dispatches received messages as {topic, payload} events for as
// long as the caller stays subscribed, then tears the subscription down,
// grounded on rpc_subscribe/sub_close_callback's register-then-unregister
// lifecycle. The `virtual` flag registers local dispatch without sending an
// MQTT SUBSCRIBE to the broker, matching rpc_subscribe's `!virtual` guard.
func (s *Server) subscribe(_ string, params corert.Value, emit func(corert.Value) error, unsubscribe <-chan struct{}) error {
	filters, err := topicFilters(params)
	if err != nil {
		return err
	}
	qos, err := qosParam(params)
	if err != nil {
		return err
	}
	virtual, _ := boolParam(params, "virtual")
	for _, f := range filters {
		if f == "" {
			return corert.NewErr("mqtt_subscribe", corert.KindInvalid, "topic filter must not be empty")
		}
		if len(f) > constants.MaxTopicFilterLen {
			return corert.NewErr("mqtt_subscribe", corert.KindRange, "topic filter too large")
		}
	}

	msgs := make(chan PublishMessage, 64)
	cb := func(msg PublishMessage) {
		select {
		case msgs <- msg:
		default:
		}
	}

	ctx := context.Background()
	registered := make([]string, 0, len(filters))
	defer func() {
		for _, f := range registered {
			if virtual {
				s.client.registry.Unregister(f)
			} else {
				_ = s.client.Unsubscribe(ctx, f)
			}
		}
	}()

	for _, f := range filters {
		if virtual {
			if !s.client.registry.Register(f, qos, cb) {
				return corert.NewErr("mqtt_subscribe", corert.KindNoMem, "subscription table is full")
			}
		} else if err := s.client.Subscribe(ctx, f, qos, cb); err != nil {
			return err
		}
		registered = append(registered, f)
	}

	for {
		select {
		case <-unsubscribe:
			return nil
		case msg := <-msgs:
			if err := emit(corert.MapVal([]corert.KV{
				{Key: corert.Str("topic"), Val: corert.StrVal(msg.Topic)},
				{Key: corert.Str("payload"), Val: corert.BufVal(msg.Payload)},
			})); err != nil {
				return err
			}
		}
	}
}

// connectionStatus emits the current MQTT connection state immediately on
// subscribe and again on every transition, grounded on
// iotcored_mqtt_status_update_register/_send.
func (s *Server) connectionStatus(_ string, _ corert.Value, emit func(corert.Value) error, unsubscribe <-chan struct{}) error {
	status, cancel := s.client.WatchConnectionStatus()
	defer cancel()

	for {
		select {
		case <-unsubscribe:
			return nil
		case v, ok := <-status:
			if !ok {
				return nil
			}
			if err := emit(corert.Bool(v)); err != nil {
				return err
			}
		}
	}
}
