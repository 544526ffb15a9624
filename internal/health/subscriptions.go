package health

import (
	"context"
	"sync"
	"time"

	"github.com/vaneuver/corert/internal/constants"
)

// maxSubscriptions bounds the number of live "wait for lifecycle
// completion" subscriptions, matching GGHEALTHD_MAX_SUBSCRIPTIONS.
const maxSubscriptions = constants.MaxLifecycleSubscriptions

// subscribePollInterval is how often the watcher re-reads a watched
// component's unit state. gghealthd's own implementation gets change
// notification for free from sd-bus's PropertiesChanged signal; this
// polls Client.GetLifecycleState instead, since driving raw D-Bus signal
// matches directly would bypass the high-level Conn this package already
// uses for everything else.
const subscribePollInterval = constants.LifecyclePollInterval

// StatusEvent is delivered to a subscriber once component reaches a
// terminal lifecycle state.
type StatusEvent struct {
	Component string
	State     LifecycleState
}

type waiter struct {
	component string
	ch        chan StatusEvent
}

// lifecycleReader is the subset of *Client the watcher needs to perform its
// synchronous already-terminal check. Accepting the interface rather than
// *Client lets tests exercise that check without a real D-Bus connection.
type lifecycleReader interface {
	GetLifecycleState(ctx context.Context, component string) (LifecycleState, error)
}

// SubscriptionWatcher watches systemd unit state for every component with
// an active waiter and fans out a StatusEvent exactly once a component's
// ActiveState implies a terminal lifecycle state (RUNNING, FINISHED,
// BROKEN), mirroring subscriptions.c's properties_changed_handler filter.
// Grounded on subscriptions.c's fixed SoA subscription table
// (slots/handles/component_names, capacity GGHEALTHD_MAX_SUBSCRIPTIONS).
type SubscriptionWatcher struct {
	client lifecycleReader

	mu      sync.Mutex
	waiters []waiter

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSubscriptionWatcher constructs a watcher bound to client. Call Run to
// start the polling loop.
func NewSubscriptionWatcher(client *Client) *SubscriptionWatcher {
	w := &SubscriptionWatcher{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if client != nil {
		w.client = client
	}
	return w
}

// Subscribe registers a wait for component's lifecycle to reach a
// terminal state. If component is already in a terminal state, the event
// is delivered immediately without consuming a subscription slot,
// matching the early-response contract gghealthd's own synchronous
// get_active_state check provides before ever touching its subscription
// table. Returns false if the subscription table is full. The returned
// channel receives exactly one event, then is closed; cancel removes the
// waiter without waiting for an event.
func (w *SubscriptionWatcher) Subscribe(ctx context.Context, component string) (events <-chan StatusEvent, cancel func(), ok bool) {
	normalized := normalizeComponentName(component)

	if w.client != nil {
		if state, err := w.client.GetLifecycleState(ctx, normalized); err == nil && IsTerminal(state) {
			ch := make(chan StatusEvent, 1)
			ch <- StatusEvent{Component: normalized, State: state}
			close(ch)
			return ch, func() {}, true
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.waiters) >= maxSubscriptions {
		return nil, nil, false
	}
	ch := make(chan StatusEvent, 1)
	w.waiters = append(w.waiters, waiter{component: normalized, ch: ch})

	cancelFn := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, ent := range w.waiters {
			if ent.ch == ch {
				w.waiters = append(w.waiters[:i], w.waiters[i+1:]...)
				return
			}
		}
	}
	return ch, cancelFn, true
}

// Run polls systemd unit state until ctx is done or Close is called,
// delivering a StatusEvent to every matching waiter when a watched
// component's lifecycle state becomes terminal.
func (w *SubscriptionWatcher) Run(ctx context.Context) {
	defer close(w.doneCh)
	ticker := time.NewTicker(subscribePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *SubscriptionWatcher) poll(ctx context.Context) {
	w.mu.Lock()
	components := make(map[string]bool, len(w.waiters))
	for _, ent := range w.waiters {
		components[ent.component] = true
	}
	w.mu.Unlock()

	for component := range components {
		state, err := w.client.GetLifecycleState(ctx, component)
		if err != nil || !IsTerminal(state) {
			continue
		}
		w.deliver(component, state)
	}
}

func (w *SubscriptionWatcher) deliver(component string, state LifecycleState) {
	w.mu.Lock()
	var remaining []waiter
	var matched []waiter
	for _, ent := range w.waiters {
		if ent.component == component {
			matched = append(matched, ent)
			continue
		}
		remaining = append(remaining, ent)
	}
	w.waiters = remaining
	w.mu.Unlock()

	for _, ent := range matched {
		ent.ch <- StatusEvent{Component: component, State: state}
		close(ent.ch)
	}
}

// Close stops Run.
func (w *SubscriptionWatcher) Close() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}
