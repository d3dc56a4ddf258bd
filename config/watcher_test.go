package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/creepminer-go/capacity-miner/plot"
)

func TestWatcherTriggersRescanOnNewPlotFile(t *testing.T) {
	dir := t.TempDir()
	registry, err := plot.NewRegistry("")
	require.NoError(t, err)

	w, err := NewWatcher("", []string{dir}, registry)
	require.NoError(t, err)
	defer w.Close()

	added := make(chan []*plot.File, 4)
	w.SetRescanLogger(func(a, r []*plot.File) {
		if len(a) > 0 {
			added <- a
		}
	})
	go w.Run()

	name := filepath.Join(dir, "7_0_1_1")
	f, err := os.Create(name)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(plot.NonceSize))
	require.NoError(t, f.Close())

	select {
	case got := <-added:
		require.Len(t, got, 1)
		require.Equal(t, uint64(7), got[0].Account)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rescan to observe new plot file")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	registry, err := plot.NewRegistry("")
	require.NoError(t, err)
	w, err := NewWatcher("", nil, registry)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
