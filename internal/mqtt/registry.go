package mqtt

import (
	"sync"

	"github.com/vaneuver/corert/internal/constants"
)

// maxSubscriptions bounds the number of live topic-filter registrations,
// matching IOTCORED_MAX_SUBSCRIPTIONS in the original runtime.
const maxSubscriptions = constants.MaxSubscriptions

// SubscribeCallback receives a decoded PUBLISH matching a registered topic
// filter.
type SubscribeCallback func(msg PublishMessage)

type subscriptionEntry struct {
	filter   string
	qos      byte
	callback SubscribeCallback
}

// Registry tracks live topic-filter subscriptions and fans out received
// PUBLISH packets to every matching callback. Grounded on iotcored's
// subscription table (mqtt.c's registration/removal around
// iotcored_mqtt_subscribe/iotcored_mqtt_unsubscribe), which keeps a fixed
// table of filter->callback entries and replays them against each incoming
// PUBLISH via topic filter matching.
type Registry struct {
	mu      sync.RWMutex
	entries []subscriptionEntry
}

// NewRegistry returns an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{entries: make([]subscriptionEntry, 0, maxSubscriptions)}
}

// Register adds filter with its callback. Returns false if the table is
// full.
func (r *Registry) Register(filter string, qos byte, cb SubscribeCallback) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) >= maxSubscriptions {
		return false
	}
	r.entries = append(r.entries, subscriptionEntry{filter: filter, qos: qos, callback: cb})
	return true
}

// Unregister removes every entry registered under filter. Returns the
// number of entries removed.
func (r *Registry) Unregister(filter string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	removed := 0
	for _, e := range r.entries {
		if e.filter == filter {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed
}

// Filters returns every distinct registered filter, used to replay
// subscriptions after a reconnect (the broker forgets them once the
// transport drops, per clean-session semantics).
func (r *Registry) Filters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(r.entries))
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		if !seen[e.filter] {
			seen[e.filter] = true
			out = append(out, e.filter)
		}
	}
	return out
}

// Dispatch delivers msg to every registered filter that matches its topic.
func (r *Registry) Dispatch(msg PublishMessage) {
	r.mu.RLock()
	matches := make([]SubscribeCallback, 0, 1)
	for _, e := range r.entries {
		if TopicMatch(e.filter, msg.Topic) {
			matches = append(matches, e.callback)
		}
	}
	r.mu.RUnlock()
	for _, cb := range matches {
		cb(msg)
	}
}

// Len reports the number of registered entries, including duplicate
// filters registered by different callbacks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
