// Package verifier implements the verifier pool (§4.6): long-lived workers
// that drain the verify queue, compute Shabal-256 deadlines over each job's
// scoops using width-1/4/8 batching, and forward the job's local minimum to
// the block coordinator.
package verifier

import (
	"encoding/binary"
	"log"
	"sync"

	"github.com/creepminer-go/capacity-miner/coordinator"
	"github.com/creepminer-go/capacity-miner/job"
	"github.com/creepminer-go/capacity-miner/queue"
	"github.com/creepminer-go/capacity-miner/shabal256"
)

// Pool is a set of long-lived verifier workers, all fixed to the same SIMD
// width for the pool's lifetime (Design Notes §9: width is chosen once at
// startup from CPU feature detection, never switched inside the hot loop).
type Pool struct {
	queue       *queue.Queue
	coordinator *coordinator.Coordinator
	width       shabal256.Width
	onEvent     func(event string, args ...interface{})
	wg          sync.WaitGroup

	release func(n uint64)
}

// New constructs a verifier Pool. release is called with a job's
// MemorySize once the worker is done with its buffer, typically
// arbiter.Arbiter.Release.
func New(q *queue.Queue, coord *coordinator.Coordinator, width shabal256.Width, release func(n uint64)) *Pool {
	return &Pool{
		queue:       q,
		coordinator: coord,
		width:       width,
		onEvent:     func(string, ...interface{}) {},
		release:     release,
	}
}

// SetEventLogger installs a callback for the verifier pool's output.*
// verbosity event: "nonceFoundPlot", with args (nonce, deadline uint64,
// path string).
func (p *Pool) SetEventLogger(fn func(event string, args ...interface{})) {
	p.onEvent = fn
}

// Start launches workers verifier workers.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Wait blocks until every worker has exited (the queue must be shut down for
// that to happen).
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		j, ok := p.queue.Dequeue()
		if !ok {
			return
		}
		p.processJob(j)
	}
}

func (p *Pool) processJob(j *job.VerifyJob) {
	defer p.release(j.MemorySize)

	if !p.coordinator.IsCurrent(j.Block) {
		return
	}
	if j.BaseTarget == 0 {
		log.Printf("verifier: dropping job for %s: base_target is zero", j.InputPath)
		return
	}
	if j.ScoopCount() == 0 {
		return
	}

	var bestNonce, bestDeadline uint64
	haveBest := false
	record := func(nonce, deadline uint64) {
		if !haveBest || deadline < bestDeadline {
			haveBest = true
			bestNonce = nonce
			bestDeadline = deadline
		}
	}

	switch p.width {
	case shabal256.Width8:
		scanWidth8(j, record)
	case shabal256.Width4:
		scanWidth4(j, record)
	default:
		scanWidth1(j, 0, j.ScoopCount(), record)
	}

	if haveBest && p.coordinator.IsCurrent(j.Block) {
		p.onEvent("nonceFoundPlot", bestNonce, bestDeadline, j.InputPath)
		p.coordinator.SubmitNonce(bestNonce, j.AccountID, bestDeadline, j.Block, j.InputPath)
	}
}

func deadlineFromDigest(digest []byte, baseTarget uint64) uint64 {
	return binary.LittleEndian.Uint64(digest[:8]) / baseTarget
}

// scanWidth1 hashes scoops [from, to) one at a time. It is also how every
// wide scan handles its ragged tail (§4.6 step 4: "fall back to width-1 for
// the remaining lanes rather than passing null lanes").
func scanWidth1(j *job.VerifyJob, from, to int, record func(nonce, deadline uint64)) {
	out := make([]byte, shabal256.Size)
	for i := from; i < to; i++ {
		d := shabal256.New()
		_, _ = d.Write(j.Gensig[:])
		_, _ = d.Write(j.Scoop(i))
		d.Close(out)
		record(j.Nonce(i), deadlineFromDigest(out, j.BaseTarget))
	}
}

func scanWidth4(j *job.VerifyJob, record func(nonce, deadline uint64)) {
	count := j.ScoopCount()
	prefix := shabal256.NewWide4()
	prefix.UpdatePrefix(j.Gensig[:])

	var outs [4][]byte
	for i := range outs {
		outs[i] = make([]byte, shabal256.Size)
	}

	i := 0
	for ; i+4 <= count; i += 4 {
		lane := prefix.Clone()
		var scoops [4][]byte
		for k := 0; k < 4; k++ {
			scoops[k] = j.Scoop(i + k)
		}
		lane.UpdateScoops(scoops)
		lane.Close(outs)
		for k := 0; k < 4; k++ {
			record(j.Nonce(i+k), deadlineFromDigest(outs[k], j.BaseTarget))
		}
	}
	scanWidth1(j, i, count, record)
}

func scanWidth8(j *job.VerifyJob, record func(nonce, deadline uint64)) {
	count := j.ScoopCount()
	prefix := shabal256.NewWide8()
	prefix.UpdatePrefix(j.Gensig[:])

	var outs [8][]byte
	for i := range outs {
		outs[i] = make([]byte, shabal256.Size)
	}

	i := 0
	for ; i+8 <= count; i += 8 {
		lane := prefix.Clone()
		var scoops [8][]byte
		for k := 0; k < 8; k++ {
			scoops[k] = j.Scoop(i + k)
		}
		lane.UpdateScoops(scoops)
		lane.Close(outs)
		for k := 0; k < 8; k++ {
			record(j.Nonce(i+k), deadlineFromDigest(outs[k], j.BaseTarget))
		}
	}
	scanWidth1(j, i, count, record)
}
