// Package reader implements the plot reader pool (§4.5): long-lived worker
// goroutines that stream plot files into arbiter-gated buffers and post
// VerifyJobs to the verify queue.
package reader

import (
	"log"
	"os"
	"sync"

	"github.com/creepminer-go/capacity-miner/arbiter"
	"github.com/creepminer-go/capacity-miner/coordinator"
	"github.com/creepminer-go/capacity-miner/job"
	"github.com/creepminer-go/capacity-miner/plot"
	"github.com/creepminer-go/capacity-miner/queue"
)

// DefaultSlabCapBytes is the policy cap on a single job's buffer size (§4.5:
// "largest power-of-two not exceeding a policy cap, e.g. 256 KiB").
const DefaultSlabCapBytes = 256 << 10

// Pool is a set of long-lived reader workers pulling plot files off a shared
// channel. Work is distributed per plot file (the spec allows either
// per-directory or per-file granularity; per-file lets idle workers pick up
// slack from directories with uneven file counts).
type Pool struct {
	coordinator  *coordinator.Coordinator
	arbiter      *arbiter.Arbiter
	queue        *queue.Queue
	slabCapBytes int64
	onEvent      func(event string, args ...interface{})

	files chan *plot.File
	wg    sync.WaitGroup
}

// New constructs a reader Pool. queueDepth sizes the internal files channel;
// passing the total number of plot files typically expected per scan avoids
// Submit blocking on a slow worker.
func New(coord *coordinator.Coordinator, arb *arbiter.Arbiter, q *queue.Queue, slabCapBytes int64, queueDepth int) *Pool {
	if slabCapBytes <= 0 {
		slabCapBytes = DefaultSlabCapBytes
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	return &Pool{
		coordinator:  coord,
		arbiter:      arb,
		queue:        q,
		slabCapBytes: slabCapBytes,
		onEvent:      func(string, ...interface{}) {},
		files:        make(chan *plot.File, queueDepth),
	}
}

// SetEventLogger installs a callback invoked for the reader pool's output.*
// verbosity event: "plotDone", with args (path string, bytesRead int64).
func (p *Pool) SetEventLogger(fn func(event string, args ...interface{})) {
	p.onEvent = fn
}

// Start launches workers reader workers. Safe to call once.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Submit hands a block's worth of plot files to the reader pool. It may
// block if every worker is still busy with a previous file; that is the
// intended backpressure (there is no separate "per-block" reset — a worker
// picking up a file late simply scans it against whatever block is current
// by the time it starts, which is always correct per §5's ordering
// guarantees).
func (p *Pool) Submit(files []*plot.File) {
	for _, f := range files {
		p.files <- f
	}
}

// Close stops accepting new files and waits for the workers to exit. Workers
// still scan every file already submitted, including those buffered in the
// channel; a file whose block is stale, or whose Reserve fails after an
// arbiter Abort, is abandoned at its next slab.
func (p *Pool) Close() {
	close(p.files)
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for f := range p.files {
		p.scanFile(f)
	}
}

func (p *Pool) scanFile(f *plot.File) {
	ctx := p.coordinator.Current()
	if ctx == nil {
		return
	}

	cap := p.slabCapBytes
	if limit := int64(p.arbiter.Limit()); limit > 0 && limit < cap {
		cap = limit
	}
	maxScoops := plot.MaxSlabScoops(cap)
	slabs := plot.PlanSlabs(f, ctx.ScoopNumber, maxScoops)

	fh, err := os.Open(f.Path)
	if err != nil {
		log.Printf("reader: skipping %s: open failed: %v", f.Path, err)
		return
	}
	defer fh.Close()
	adviseSequential(fh)

	var bytesRead int64
	for _, slab := range slabs {
		if !p.coordinator.IsCurrent(ctx.Height) {
			return // superseded between slabs; nothing reserved for this slab yet
		}

		n := uint64(slab.ByteLength)
		if !p.arbiter.Reserve(n) {
			return // arbiter aborted (shutdown)
		}

		buf := make([]byte, n)
		if _, err := fh.ReadAt(buf, slab.ByteOffset); err != nil {
			p.arbiter.Release(n)
			log.Printf("reader: skipping %s: short/failed read at offset %d: %v", f.Path, slab.ByteOffset, err)
			return
		}
		bytesRead += int64(n)

		j := &job.VerifyJob{
			Buffer:     buf,
			AccountID:  f.Account,
			NonceStart: f.StartNonce,
			NonceRead:  slab.NonceOffset,
			InputPath:  f.Path,
			Block:      ctx.Height,
			Gensig:     ctx.Gensig,
			BaseTarget: ctx.BaseTarget,
			MemorySize: n,
		}
		if !p.queue.Enqueue(j) {
			p.arbiter.Release(n)
			return // queue shut down
		}
	}

	p.onEvent("plotDone", f.Path, bytesRead)
}
