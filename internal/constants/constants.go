// Package constants centralizes the fixed-capacity and timing defaults
// shared across the runtime's components, the way the teacher's own
// constants package gathered ublk device-lifecycle tuning in one place
// instead of scattering magic numbers through each package.
package constants

import "time"

// MQTT client defaults, matching iotcored's own compiled-in limits.
const (
	// DefaultKeepAlive is the MQTT keepalive interval sent in CONNECT
	// when a caller doesn't override it.
	DefaultKeepAlive = 30 * time.Second

	// DefaultConnectTimeout bounds the TCP+TLS+CONNACK handshake.
	DefaultConnectTimeout = 10 * time.Second

	// MaxSubscribeFilters bounds how many topic filters a single
	// subscribe RPC call may register at once, matching
	// GGL_MQTT_MAX_SUBSCRIBE_FILTERS.
	MaxSubscribeFilters = 10

	// MaxSubscriptions bounds the subscription registry's fixed table,
	// matching iotcored's compiled-in subscription table size.
	MaxSubscriptions = 128

	// MaxTopicFilterLen bounds a single subscription slot's filter
	// length, matching the fixed-byte-array subscription slot shape
	// (filter: ≤256 B, filter_len, handle, qos).
	MaxTopicFilterLen = 256

	// MaxUnackedPublishRecords bounds how many in-flight QoS1 PUBLISH
	// packets awaiting PUBACK the store tracks at once, matching
	// IOTCORED_MQTT_MAX_PUBLISH_RECORDS.
	MaxUnackedPublishRecords = 10

	// NetworkBufferSize is the serialized-packet size budget per
	// PUBLISH, matching IOTCORED_NETWORK_BUFFER_SIZE.
	NetworkBufferSize = 5000

	// UnackedBufferSize is the total contiguous byte store for unacked
	// publishes, matching IOTCORED_UNACKED_PACKET_BUFFER_SIZE.
	UnackedBufferSize = NetworkBufferSize * 3
)

// Health/lifecycle defaults.
const (
	// MaxLifecycleSubscriptions bounds the fixed table of pending
	// subscribe_to_lifecycle_completion waiters, matching
	// GGHEALTHD_MAX_SUBSCRIPTIONS.
	MaxLifecycleSubscriptions = 10

	// ComponentNameMaxLen bounds the accepted component_name length.
	ComponentNameMaxLen = 128

	// LifecyclePollInterval is how often subscriptions.go polls a
	// component's ActiveState while waiting for it to reach a terminal
	// state.
	LifecyclePollInterval = 2 * time.Second
)
