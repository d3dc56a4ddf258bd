package miner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReporterRendersOneRowPerDirectory(t *testing.T) {
	r := NewReporter()
	r.RecordPlotDone("/mnt/a/1_0_100_2", 4096)
	r.RecordPlotDone("/mnt/a/2_0_100_2", 2048)
	r.RecordPlotDone("/mnt/b/3_0_100_2", 1024)
	r.RecordDeadline("/mnt/a/1_0_100_2", 500)
	r.RecordDeadline("/mnt/a/2_0_100_2", 200)

	var buf bytes.Buffer
	r.Render(&buf)
	out := buf.String()

	require.Contains(t, out, "/mnt/a")
	require.Contains(t, out, "/mnt/b")
	require.Contains(t, out, "200") // best deadline in /mnt/a is the lower of 500/200
	require.Contains(t, out, "6144") // bytes read in /mnt/a: 4096+2048
}

func TestReporterResetClearsPriorBlockStats(t *testing.T) {
	r := NewReporter()
	r.RecordPlotDone("/mnt/a/1_0_100_2", 4096)
	r.Reset()

	var buf bytes.Buffer
	r.Render(&buf)
	require.NotContains(t, buf.String(), "/mnt/a")
}
