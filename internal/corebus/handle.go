package corebus

import "sync/atomic"

// Handle identifies an in-flight request or an active subscription. Zero is
// never issued and is used as a sentinel for "no handle".
type Handle uint64

var handleCounter atomic.Uint64

// nextHandle returns a process-unique, monotonically increasing handle.
func nextHandle() Handle {
	return Handle(handleCounter.Add(1))
}
