package miner

import (
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/olekukonko/tablewriter"
)

// dirStats accumulates what a Reporter tracks per plot directory: how many
// files have been scanned for the current block, how many bytes have been
// read off disk, and the best (lowest) deadline found in that directory so
// far (§10.2).
type dirStats struct {
	filesScanned int
	bytesRead    int64
	bestDeadline uint64
	haveBest     bool
}

// Reporter renders the output.progress table: one row per plot directory
// with files scanned, bytes read and best deadline so far, reset at the
// start of every new block (§10.2). It is fed by the reader and verifier
// pools' event callbacks and is safe for concurrent use.
type Reporter struct {
	mu   sync.Mutex
	dirs map[string]*dirStats
}

// NewReporter constructs an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{dirs: make(map[string]*dirStats)}
}

// Reset clears all per-directory bookkeeping, called at the start of every
// OnNewBlock so the table reflects only the current scan.
func (r *Reporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs = make(map[string]*dirStats)
}

func (r *Reporter) dirFor(path string) *dirStats {
	dir := filepath.Dir(path)
	s, ok := r.dirs[dir]
	if !ok {
		s = &dirStats{}
		r.dirs[dir] = s
	}
	return s
}

// RecordPlotDone is fed from the reader pool's plotDone event.
func (r *Reporter) RecordPlotDone(path string, bytesRead int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.dirFor(path)
	s.filesScanned++
	s.bytesRead += bytesRead
}

// RecordDeadline is fed from the verifier pool's nonceFoundPlot event.
func (r *Reporter) RecordDeadline(path string, deadline uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.dirFor(path)
	if !s.haveBest || deadline < s.bestDeadline {
		s.haveBest = true
		s.bestDeadline = deadline
	}
}

// Render writes the current per-directory table to w.
func (r *Reporter) Render(w io.Writer) {
	r.mu.Lock()
	dirs := make([]string, 0, len(r.dirs))
	for d := range r.dirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Plot Directory", "Files Scanned", "Bytes Read", "Best Deadline"})
	for _, d := range dirs {
		s := r.dirs[d]
		best := "-"
		if s.haveBest {
			best = strconv.FormatUint(s.bestDeadline, 10)
		}
		table.Append([]string{d, strconv.Itoa(s.filesScanned), strconv.FormatInt(s.bytesRead, 10), best})
	}
	r.mu.Unlock()

	table.Render()
}
