// Package coordinator owns the block coordinator described in §4.7: the
// single source of truth for "what block are we scanning right now", the
// per-block best-deadline reducer, and the ANNOUNCED -> SCANNING ->
// (SUPERSEDED | CLOSED) state machine driven purely by height changes and
// shutdown.
package coordinator

import (
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru"
	sha256simd "github.com/minio/sha256-simd"

	"github.com/creepminer-go/capacity-miner/submit"
)

// scoopNumberSpace is the number of scoops a nonce's footprint is divided
// into; kept local to avoid an import cycle with package plot (which has no
// need of the coordinator).
const scoopNumberSpace = 4096

// BlockContext is the immutable snapshot of "what to scan right now".
// Readers and verifiers only ever compare against Height; the rest rides
// along in the VerifyJob so a stale job never needs to dereference a
// coordinator that may have already moved on.
type BlockContext struct {
	Height      uint64
	Gensig      [32]byte
	BaseTarget  uint64
	ScoopNumber uint64
}

// DeriveScoopNumber computes the scoop index to read for a block from its
// generation signature and height, using this repository's own deterministic
// rule: scoop = BE64(last 8 bytes of SHA256(gensig || height_be)) mod 4096.
// It is not a chain's published scoop rule.
func DeriveScoopNumber(gensig [32]byte, height uint64) uint64 {
	var block [40]byte
	copy(block[:32], gensig[:])
	for i := 0; i < 8; i++ {
		block[32+i] = byte(height >> (56 - 8*i))
	}
	sum := sha256simd.Sum256(block[:])
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(sum[24+i])
	}
	return v % scoopNumberSpace
}

type best struct {
	nonce    uint64
	deadline uint64
}

// Coordinator is safe for concurrent use by any number of readers and
// verifiers.
type Coordinator struct {
	current atomic.Pointer[BlockContext]

	mu         sync.Mutex // guards bestByBlk's check-then-act sequence and lastWinner*
	bestByBlk  *lru.Cache // uint64 height -> *best
	submitFunc submit.Func
	shutdown   atomic.Bool
	onEvent    func(event string, args ...interface{})

	lastWinnerSet bool
	lastWinnerNonce, lastWinnerDeadline, lastWinnerBlock uint64

	// submittedMu guards submitted independently of mu: bestByBlk's eviction
	// callback fires synchronously from inside bestByBlk.Add, which SubmitNonce
	// calls while already holding mu, so the callback must not also need mu.
	submittedMu sync.Mutex
	submitted   map[uint64]mapset.Set[uint64]
}

// New constructs a Coordinator. bestCacheSize bounds the number of recent
// block heights the best-deadline bookkeeping retains, so a long-lived
// process doesn't grow it without bound (§11 domain stack:
// hashicorp/golang-lru). submitted's per-block dedup sets are evicted in
// lockstep via NewWithEvict, so that map is bounded by the same cache size
// rather than growing by one entry per block for the life of the process.
func New(submitFunc submit.Func, bestCacheSize int) *Coordinator {
	if bestCacheSize < 1 {
		bestCacheSize = 64
	}
	c := &Coordinator{
		submitted:  make(map[uint64]mapset.Set[uint64]),
		submitFunc: submitFunc,
		onEvent:    func(string, ...interface{}) {},
	}
	cache, _ := lru.NewWithEvict(bestCacheSize, func(key, value interface{}) {
		c.submittedMu.Lock()
		delete(c.submitted, key.(uint64))
		c.submittedMu.Unlock()
	})
	c.bestByBlk = cache
	return c
}

// SetEventLogger installs a callback for output.* verbosity events
// (nonceFound, the process-wide "new best deadline forwarded" event).
func (c *Coordinator) SetEventLogger(fn func(event string, args ...interface{})) {
	c.onEvent = fn
}

// OnNewBlock installs a new block context, atomically superseding whatever
// was previously current. Readers/verifiers observe this the next time they
// check Current().Height (§5: "current_block updates are totally ordered,
// single writer, monotonically non-decreasing view").
func (c *Coordinator) OnNewBlock(height uint64, gensig [32]byte, baseTarget uint64) *BlockContext {
	ctx := &BlockContext{
		Height:      height,
		Gensig:      gensig,
		BaseTarget:  baseTarget,
		ScoopNumber: DeriveScoopNumber(gensig, height),
	}
	c.current.Store(ctx)
	return ctx
}

// Current returns the active block context, or nil before the first
// OnNewBlock call.
func (c *Coordinator) Current() *BlockContext {
	return c.current.Load()
}

// IsCurrent reports whether block is still the active height — the check
// every reader slab boundary and every verifier dequeue must make before
// doing further work with a job (§4.5 step 4, §4.6 step 2).
func (c *Coordinator) IsCurrent(block uint64) bool {
	ctx := c.current.Load()
	return ctx != nil && ctx.Height == block
}

// SubmitNonce is called by verifiers with their local per-job minimum. It
// compares against the best deadline seen so far for block under a mutex
// and only forwards to the external submitter if strictly better (§4.7); a
// tie keeps whichever nonce was recorded first for the block. Stale
// submissions (block no longer current) are silently discarded, satisfying
// §8 invariant 5.
func (c *Coordinator) SubmitNonce(nonce, account, deadline, block uint64, plotPath string) {
	if c.shutdown.Load() || !c.IsCurrent(block) {
		return
	}

	c.mu.Lock()
	shouldSubmit := false
	if v, ok := c.bestByBlk.Get(block); !ok || deadline < v.(*best).deadline {
		c.bestByBlk.Add(block, &best{nonce: nonce, deadline: deadline})
		shouldSubmit = true
	}
	if shouldSubmit {
		c.submittedMu.Lock()
		set, ok := c.submitted[block]
		if !ok {
			set = mapset.NewThreadUnsafeSet[uint64]()
			c.submitted[block] = set
		}
		if set.Contains(nonce) {
			shouldSubmit = false
		} else {
			set.Add(nonce)
		}
		c.submittedMu.Unlock()
	}
	if shouldSubmit {
		c.lastWinnerNonce, c.lastWinnerDeadline, c.lastWinnerBlock = nonce, deadline, block
		c.lastWinnerSet = true
	}
	c.mu.Unlock()

	if shouldSubmit && !c.shutdown.Load() && c.IsCurrent(block) {
		c.onEvent("nonceFound", nonce, deadline, block)
		c.submitFunc(nonce, account, deadline, block, plotPath)
	}
}

// LastWinner returns the most recently forwarded (nonce, deadline, block)
// across any block, for the output.lastWinner verbosity flag (§6).
func (c *Coordinator) LastWinner() (nonce, deadline, block uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastWinnerNonce, c.lastWinnerDeadline, c.lastWinnerBlock, c.lastWinnerSet
}

// BestDeadline returns the best (nonce, deadline) recorded for block, if
// any.
func (c *Coordinator) BestDeadline(block uint64) (nonce, deadline uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, found := c.bestByBlk.Get(block)
	if !found {
		return 0, 0, false
	}
	b := v.(*best)
	return b.nonce, b.deadline, true
}

// Shutdown marks the coordinator as shutting down; SubmitNonce becomes a
// permanent no-op. Arbiter/queue cancellation is the caller's (Miner's)
// responsibility, per the "no back-pointer" design note.
func (c *Coordinator) Shutdown() {
	c.shutdown.Store(true)
}
