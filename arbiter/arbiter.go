// Package arbiter implements the process-wide byte-quota gate that bounds how
// much slab buffer memory the reader pool may have outstanding at once (§4.3
// of the spec). It is the primary backpressure mechanism; the verify queue's
// depth is secondary slack.
package arbiter

import (
	"sync"

	"github.com/dustin/go-humanize"
)

// DefaultMaxBufferSizeMB is the recognized config default (spec §6).
const DefaultMaxBufferSizeMB = 128

// Arbiter gates buffer allocation against a configurable byte limit using a
// mutex and condition variable, exactly as §4.3/§5 specify.
type Arbiter struct {
	mu          sync.Mutex
	cond        *sync.Cond
	limit       uint64
	outstanding uint64
	aborted     bool
}

// New constructs an Arbiter with the given byte limit.
func New(limitBytes uint64) *Arbiter {
	a := &Arbiter{limit: limitBytes}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// Reserve blocks until outstanding+n <= limit, then increments outstanding
// and returns true. It returns false if the arbiter was cancelled while
// waiting; the caller must not treat n as reserved in that case. Callers are
// expected to size n from the current Limit() (the reader pool caps its slab
// size by Limit() before calling plot.MaxSlabScoops), so n should rarely
// exceed limit; if it does, Reserve
// still lets it through once outstanding has drained to zero rather than
// deadlocking forever.
func (a *Arbiter) Reserve(n uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for {
		if a.aborted {
			return false
		}
		if a.outstanding+n <= a.limit || (a.outstanding == 0 && n > a.limit) {
			a.outstanding += n
			return true
		}
		a.cond.Wait()
	}
}

// Release returns n bytes to the quota and wakes one waiter. It is always
// safe to call, including with n == 0 (the empty-buffer-job case, §8).
func (a *Arbiter) Release(n uint64) {
	if n == 0 {
		return
	}
	a.mu.Lock()
	a.outstanding -= n
	a.mu.Unlock()
	a.cond.Signal()
}

// SetLimit changes the quota. It does not evict already-outstanding
// reservations; it only affects future Reserve calls.
func (a *Arbiter) SetLimit(limitBytes uint64) {
	a.mu.Lock()
	a.limit = limitBytes
	a.mu.Unlock()
	a.cond.Broadcast()
}

// Outstanding reports the current number of reserved-but-unreleased bytes.
func (a *Arbiter) Outstanding() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outstanding
}

// Limit reports the current byte quota.
func (a *Arbiter) Limit() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limit
}

// Abort cancels every current and future waiter; Reserve returns false from
// then on until the Arbiter is replaced. Used by Miner.Shutdown.
func (a *Arbiter) Abort() {
	a.mu.Lock()
	a.aborted = true
	a.mu.Unlock()
	a.cond.Broadcast()
}

// String renders the current quota usage human-readably for progress logs.
func (a *Arbiter) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return humanize.Bytes(a.outstanding) + " / " + humanize.Bytes(a.limit)
}
