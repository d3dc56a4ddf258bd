// Package miner wires the arbiter, queue, coordinator, reader pool and
// verifier pool into the single top-level type a cmd/ binary constructs
// (§4's component list end to end).
package miner

import (
	"log"
	"os"
	"time"

	"github.com/creepminer-go/capacity-miner/arbiter"
	"github.com/creepminer-go/capacity-miner/config"
	"github.com/creepminer-go/capacity-miner/coordinator"
	"github.com/creepminer-go/capacity-miner/job"
	"github.com/creepminer-go/capacity-miner/plot"
	"github.com/creepminer-go/capacity-miner/queue"
	"github.com/creepminer-go/capacity-miner/reader"
	"github.com/creepminer-go/capacity-miner/shabal256"
	"github.com/creepminer-go/capacity-miner/submit"
	"github.com/creepminer-go/capacity-miner/verifier"
)

// progressRenderInterval is how often the output.progress table is
// re-rendered while a Miner is running.
const progressRenderInterval = 5 * time.Second

// defaultQueueSlack sizes the verify queue at §4.4's recommended default of
// 2x verifier workers.
const defaultQueueSlack = 2

// Miner owns every long-lived component for one mining process and provides
// the single entry/exit points a cmd/ binary drives: OnNewBlock to feed new
// chain state in, Shutdown to tear everything down.
type Miner struct {
	cfg         *config.Config
	registry    *plot.Registry
	arbiter     *arbiter.Arbiter
	queue       *queue.Queue
	coordinator *coordinator.Coordinator
	readers     *reader.Pool
	verifiers   *verifier.Pool
	reporter    *Reporter

	readerWorkers   int
	verifierWorkers int

	progressDone chan struct{}
}

// New constructs a Miner from a loaded Config and a Submitter. registry
// should already have had at least one Rescan performed (or be handed a
// config.Watcher that will keep it current). readerWorkers/verifierWorkers
// size both the worker pools (via Start) and the queue capacity (§4.4's
// recommended 2x-verifier-workers default).
func New(cfg *config.Config, registry *plot.Registry, submitter submit.Submitter, readerWorkers, verifierWorkers int) *Miner {
	arb := arbiter.New(uint64(cfg.MaxBufferSizeMB) << 20)

	q := queue.New(verifierWorkers * defaultQueueSlack)

	coord := coordinator.New(submitter.Submit, 64)

	rp := reader.New(coord, arb, q, reader.DefaultSlabCapBytes, len(registry.Files())+1)
	vp := verifier.New(q, coord, shabal256.SelectWidth(), arb.Release)
	rep := NewReporter()

	rp.SetEventLogger(func(event string, args ...interface{}) {
		switch event {
		case "plotDone":
			path, bytesRead := args[0].(string), args[1].(int64)
			rep.RecordPlotDone(path, bytesRead)
			if cfg.Output.PlotDone {
				log.Printf("reader: plot done: %s (%d bytes read)", path, bytesRead)
			}
		}
	})
	vp.SetEventLogger(func(event string, args ...interface{}) {
		switch event {
		case "nonceFoundPlot":
			nonce, deadline, path := args[0].(uint64), args[1].(uint64), args[2].(string)
			rep.RecordDeadline(path, deadline)
			if cfg.Output.NonceFoundPlot {
				log.Printf("verifier: nonce %d in %s, deadline %d", nonce, path, deadline)
			}
		}
	})
	coord.SetEventLogger(func(event string, args ...interface{}) {
		switch event {
		case "nonceFound":
			if cfg.Output.NonceFound {
				nonce, deadline, block := args[0].(uint64), args[1].(uint64), args[2].(uint64)
				log.Printf("coordinator: new best for block %d: nonce %d deadline %d", block, nonce, deadline)
			}
		}
	})

	return &Miner{
		cfg:             cfg,
		registry:        registry,
		arbiter:         arb,
		queue:           q,
		coordinator:     coord,
		readers:         rp,
		verifiers:       vp,
		reporter:        rep,
		readerWorkers:   readerWorkers,
		verifierWorkers: verifierWorkers,
		progressDone:    make(chan struct{}),
	}
}

// Start launches the reader and verifier worker pools, plus the
// output.progress renderer when enabled.
func (m *Miner) Start() {
	m.verifiers.Start(m.verifierWorkers)
	m.readers.Start(m.readerWorkers)
	if m.cfg.Output.Progress {
		go m.runProgressLoop()
	}
}

func (m *Miner) runProgressLoop() {
	ticker := time.NewTicker(progressRenderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.reporter.Render(os.Stdout)
			if m.cfg.Output.LastWinner {
				if nonce, deadline, block, ok := m.coordinator.LastWinner(); ok {
					log.Printf("miner: last winner: block %d nonce %d deadline %d", block, nonce, deadline)
				}
			}
		case <-m.progressDone:
			return
		}
	}
}

// SetMaxBufferSize is the explicit setter Design Notes §9 calls for: the
// arbiter's limit is the only piece of live-reconfigurable state, and it is
// never mutated implicitly as a side effect of anything else.
func (m *Miner) SetMaxBufferSize(limitBytes uint64) {
	m.arbiter.SetLimit(limitBytes)
}

// OnNewBlock installs a new block context in the coordinator, then submits
// every currently registered plot file to the reader pool for this block.
// Per §5's ordering guarantees, a reader that starts late simply observes
// whatever block is current by the time it begins, which is always correct.
func (m *Miner) OnNewBlock(height uint64, gensig [32]byte, baseTarget uint64) {
	m.reporter.Reset()
	if m.cfg.Output.Debug {
		log.Printf("miner: new block %d base_target=%d gensig=%x", height, baseTarget, gensig)
	}
	m.coordinator.OnNewBlock(height, gensig, baseTarget)
	m.readers.Submit(m.registry.Files())
}

// Shutdown aborts any blocked arbiter waiter and shuts the queue down
// (releasing any buffered-but-undrained job's memory) before waiting on
// readers and verifiers, so a worker parked in Reserve or Enqueue is always
// woken before Close/Wait blocks on it. Safe to call once after Start.
func (m *Miner) Shutdown() {
	close(m.progressDone)
	m.coordinator.Shutdown()
	m.arbiter.Abort()
	m.queue.Shutdown(func(j *job.VerifyJob) { m.arbiter.Release(j.MemorySize) })
	m.readers.Close()
	m.verifiers.Wait()
	log.Printf("miner: shutdown complete, outstanding=%s", m.arbiter.String())
}
