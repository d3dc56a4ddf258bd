package config

import (
	"log"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/creepminer-go/capacity-miner/plot"
)

// Watcher watches the config file and every configured plot location for
// changes, supplementing the original miner's rescan() (§10.4): it never
// touches the coordinator's in-flight block context, only the registry's
// file list for the next scan.
type Watcher struct {
	fsw      *fsnotify.Watcher
	registry *plot.Registry
	plots    []string
	onRescan  func(added, removed []*plot.File)
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher constructs a Watcher over configPath and every entry in plots
// (directories are watched non-recursively; Rescan itself walks
// subdirectories on every trigger, so a new subdirectory is picked up on the
// next event rather than watched directly).
func NewWatcher(configPath string, plots []string, registry *plot.Registry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := fsw.Add(configPath); err != nil {
			log.Printf("config: not watching %s: %v", configPath, err)
		}
	}
	for _, p := range plots {
		if err := fsw.Add(p); err != nil {
			log.Printf("config: not watching %s: %v", p, err)
		}
	}
	return &Watcher{
		fsw:      fsw,
		registry: registry,
		plots:    plots,
		onRescan: func([]*plot.File, []*plot.File) {},
		done:     make(chan struct{}),
	}, nil
}

// SetRescanLogger installs a callback invoked after every triggered rescan
// with the files added/removed (cmd/capacity-miner uses it for the dirDone
// output.* event).
func (w *Watcher) SetRescanLogger(fn func(added, removed []*plot.File)) {
	w.onRescan = fn
}

// Run blocks, triggering a Rescan on every filesystem event until Close is
// called. Intended to run in its own goroutine.
func (w *Watcher) Run() {
	for {
		select {
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			added, removed, err := w.registry.Rescan(w.plots)
			if err != nil {
				log.Printf("config: rescan error: %v", err)
			}
			w.onRescan(added, removed)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch error: %v", err)
		case <-w.done:
			return
		}
	}
}

// Close stops Run and releases the underlying inotify/kqueue handle. Safe to
// call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	return w.fsw.Close()
}
