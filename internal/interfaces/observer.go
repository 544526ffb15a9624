// Package interfaces holds narrow interfaces shared across the runtime's
// daemons, kept separate from their implementations to avoid circular
// imports between internal/corebus and the packages that observe it.
package interfaces

// Observer receives operational counters from a corebus.Server as it
// dispatches calls and subscriptions. corert.Metrics satisfies this
// interface directly; nothing here depends on the corert package.
type Observer interface {
	RecordRequest(latencyNs uint64, success bool)
	RecordDelivery(success bool)
	RecordLookup(latencyNs uint64, success bool)
	SetActiveSubscriptions(n uint32)
}
