package mqtt

import "testing"

func TestRegistryDispatchMatchesWildcard(t *testing.T) {
	r := NewRegistry()
	var got PublishMessage
	calls := 0
	r.Register("devices/+/telemetry", 1, func(msg PublishMessage) {
		got = msg
		calls++
	})

	r.Dispatch(PublishMessage{Topic: "devices/thing-1/telemetry", Payload: []byte("x")})
	if calls != 1 {
		t.Fatalf("expected 1 dispatch, got %d", calls)
	}
	if got.Topic != "devices/thing-1/telemetry" {
		t.Fatalf("unexpected topic delivered: %q", got.Topic)
	}

	r.Dispatch(PublishMessage{Topic: "devices/thing-1/status", Payload: []byte("x")})
	if calls != 1 {
		t.Fatalf("expected no dispatch for non-matching topic, got %d calls", calls)
	}
}

func TestRegistryDispatchFanOutMultipleSubscribers(t *testing.T) {
	r := NewRegistry()
	n := 0
	r.Register("a/#", 0, func(PublishMessage) { n++ })
	r.Register("a/b", 0, func(PublishMessage) { n++ })

	r.Dispatch(PublishMessage{Topic: "a/b"})
	if n != 2 {
		t.Fatalf("expected both subscribers to fire, got %d", n)
	}
}

func TestRegistryUnregisterRemovesAllMatching(t *testing.T) {
	r := NewRegistry()
	r.Register("x/y", 0, func(PublishMessage) {})
	r.Register("x/y", 0, func(PublishMessage) {})
	r.Register("z", 0, func(PublishMessage) {})

	removed := r.Unregister("x/y")
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 entry remaining, got %d", r.Len())
	}
}

func TestRegistryFiltersDeduplicates(t *testing.T) {
	r := NewRegistry()
	r.Register("a", 0, func(PublishMessage) {})
	r.Register("a", 1, func(PublishMessage) {})
	r.Register("b", 0, func(PublishMessage) {})

	filters := r.Filters()
	if len(filters) != 2 {
		t.Fatalf("expected 2 distinct filters, got %d: %v", len(filters), filters)
	}
}

func TestRegistryFull(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < maxSubscriptions; i++ {
		if !r.Register("t", 0, func(PublishMessage) {}) {
			t.Fatalf("expected registration %d to succeed", i)
		}
	}
	if r.Register("overflow", 0, func(PublishMessage) {}) {
		t.Fatal("expected registration to fail once table is full")
	}
}
