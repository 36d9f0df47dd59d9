// Package stats implements process-wide and per-connection atomic
// counters exposed as eventually consistent snapshots.
package stats

import "sync/atomic"

// Counters holds the atomic counters tracked for one server. The zero value
// is ready to use; all increments are lock-free.
type Counters struct {
	bytesRead              atomic.Uint64
	bytesSent              atomic.Uint64
	completedRequests      atomic.Uint64
	activeRequests         atomic.Int64
	invalidHTTPRequests    atomic.Uint64
	rejectedDueToOverload  atomic.Uint64
	failedToConnect        atomic.Uint64
	activeConnections      atomic.Int64
}

// New returns a fresh, zeroed Counters.
func New() *Counters {
	return &Counters{}
}

func (c *Counters) AddBytesRead(n int)    { c.bytesRead.Add(uint64(n)) }
func (c *Counters) AddBytesSent(n int)    { c.bytesSent.Add(uint64(n)) }
func (c *Counters) RequestStarted()       { c.activeRequests.Add(1) }
func (c *Counters) RequestCompleted() {
	c.activeRequests.Add(-1)
	c.completedRequests.Add(1)
}
func (c *Counters) InvalidHTTPRequest()   { c.invalidHTTPRequests.Add(1) }
func (c *Counters) RejectedDueToOverload() { c.rejectedDueToOverload.Add(1) }
func (c *Counters) FailedToConnect()      { c.failedToConnect.Add(1) }
func (c *Counters) ConnectionOpened()     { c.activeConnections.Add(1) }
func (c *Counters) ConnectionClosed()     { c.activeConnections.Add(-1) }

// Snapshot is an eventually-consistent, immutable copy of Counters at a
// point in time).
type Snapshot struct {
	BytesRead             uint64
	BytesSent             uint64
	CompletedRequests     uint64
	ActiveRequests        int64
	InvalidHTTPRequests   uint64
	RejectedDueToOverload uint64
	FailedToConnect       uint64
	ActiveConnections     int64
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		BytesRead:             c.bytesRead.Load(),
		BytesSent:             c.bytesSent.Load(),
		CompletedRequests:     c.completedRequests.Load(),
		ActiveRequests:        c.activeRequests.Load(),
		InvalidHTTPRequests:   c.invalidHTTPRequests.Load(),
		RejectedDueToOverload: c.rejectedDueToOverload.Load(),
		FailedToConnect:       c.failedToConnect.Load(),
		ActiveConnections:     c.activeConnections.Load(),
	}
}
