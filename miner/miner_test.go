package miner

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/creepminer-go/capacity-miner/config"
	"github.com/creepminer-go/capacity-miner/plot"
)

type stubSubmitter struct {
	mu    sync.Mutex
	calls []uint64
}

func (s *stubSubmitter) Submit(nonce, account, deadline, block uint64, plotPath string) {
	s.mu.Lock()
	s.calls = append(s.calls, nonce)
	s.mu.Unlock()
}

func writeMinerTestPlot(t *testing.T, dir string, account, start, nonces, stagger uint64) string {
	t.Helper()
	name := filepath.Join(dir, join("_", account, start, nonces, stagger))
	f, err := os.Create(name)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(int64(nonces)*plot.NonceSize))
	return name
}

func join(sep string, vals ...uint64) string {
	s := ""
	for i, v := range vals {
		if i > 0 {
			s += sep
		}
		s += itoa(v)
	}
	return s
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func TestMinerScansAPlotAndShutsDownCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeMinerTestPlot(t, dir, 1, 0, 2, 2)

	registry, err := plot.NewRegistry("")
	require.NoError(t, err)
	_, _, err = registry.Rescan([]string{dir})
	require.NoError(t, err)

	cfg := &config.Config{MaxBufferSizeMB: 16}
	submitter := &stubSubmitter{}

	m := New(cfg, registry, submitter, 1, 1)
	m.Start()

	m.OnNewBlock(1, [32]byte{1, 2, 3}, 1)
	time.Sleep(50 * time.Millisecond)

	m.Shutdown()
}

func TestSetMaxBufferSizeIsLiveReconfigurable(t *testing.T) {
	registry, err := plot.NewRegistry("")
	require.NoError(t, err)

	cfg := &config.Config{MaxBufferSizeMB: 16}
	m := New(cfg, registry, &stubSubmitter{}, 1, 1)
	m.Start()
	defer m.Shutdown()

	m.SetMaxBufferSize(32 << 20)
	require.EqualValues(t, 32<<20, m.arbiter.Limit())
}
