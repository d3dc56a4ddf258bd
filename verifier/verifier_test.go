package verifier

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creepminer-go/capacity-miner/coordinator"
	"github.com/creepminer-go/capacity-miner/job"
	"github.com/creepminer-go/capacity-miner/queue"
	"github.com/creepminer-go/capacity-miner/shabal256"
)

// referenceDeadline hashes gensig||scoop through the width-1 Digest directly,
// giving an independent expectation that does not go through any of the
// batched code paths under test.
func referenceDeadline(t *testing.T, gensig [32]byte, scoop []byte, baseTarget uint64) uint64 {
	t.Helper()
	d := shabal256.New()
	_, err := d.Write(gensig[:])
	require.NoError(t, err)
	_, err = d.Write(scoop)
	require.NoError(t, err)
	out := make([]byte, shabal256.Size)
	d.Close(out)
	return binary.LittleEndian.Uint64(out[:8]) / baseTarget
}

func buildJob(nonceStart uint64, scoopCount int, block, baseTarget uint64, gensig [32]byte) *job.VerifyJob {
	buf := make([]byte, scoopCount*64)
	for i := 0; i < scoopCount; i++ {
		for b := range buf[i*64 : (i+1)*64] {
			buf[i*64+b] = byte(i + 1)
		}
	}
	return &job.VerifyJob{
		Buffer:     buf,
		AccountID:  42,
		NonceStart: nonceStart,
		InputPath:  "test.plot",
		Block:      block,
		Gensig:     gensig,
		BaseTarget: baseTarget,
		MemorySize: uint64(len(buf)),
	}
}

func TestScanWidth1MatchesReferenceForEveryScoop(t *testing.T) {
	gensig := [32]byte{9, 9, 9}
	j := buildJob(0, 5, 1, 1000, gensig)

	var got []struct{ nonce, deadline uint64 }
	scanWidth1(j, 0, j.ScoopCount(), func(nonce, deadline uint64) {
		got = append(got, struct{ nonce, deadline uint64 }{nonce, deadline})
	})
	require.Len(t, got, 5)
	for i, g := range got {
		want := referenceDeadline(t, gensig, j.Scoop(i), j.BaseTarget)
		require.Equal(t, want, g.deadline, "scoop %d", i)
		require.Equal(t, uint64(i), g.nonce)
	}
}

func TestScanWidth4AgreesWithWidth1IncludingRaggedTail(t *testing.T) {
	gensig := [32]byte{1, 2, 3}
	j := buildJob(100, 7, 1, 500, gensig) // 7 is not a multiple of 4: exercises the tail

	var width1, width4 []uint64
	scanWidth1(j, 0, j.ScoopCount(), func(nonce, deadline uint64) { width1 = append(width1, deadline) })
	scanWidth4(j, func(nonce, deadline uint64) { width4 = append(width4, deadline) })

	require.Len(t, width4, len(width1))
	require.ElementsMatch(t, width1, width4)
}

func TestScanWidth8AgreesWithWidth1IncludingRaggedTail(t *testing.T) {
	gensig := [32]byte{4, 5, 6}
	j := buildJob(0, 19, 1, 777, gensig) // 19 is not a multiple of 8

	var width1, width8 []uint64
	scanWidth1(j, 0, j.ScoopCount(), func(nonce, deadline uint64) { width1 = append(width1, deadline) })
	scanWidth8(j, func(nonce, deadline uint64) { width8 = append(width8, deadline) })

	require.Len(t, width8, len(width1))
	require.ElementsMatch(t, width1, width8)
}

func TestProcessJobSkipsStaleBlockAndStillReleases(t *testing.T) {
	coord := coordinator.New(func(uint64, uint64, uint64, uint64, string) {}, 16)
	coord.OnNewBlock(5, [32]byte{}, 100)

	q := queue.New(1)
	var released uint64
	var mu sync.Mutex
	p := New(q, coord, shabal256.Width1, func(n uint64) {
		mu.Lock()
		released += n
		mu.Unlock()
	})

	j := buildJob(0, 2, 4 /* stale: current is 5 */, 100, [32]byte{})
	p.processJob(j)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, j.MemorySize, released)
}

func TestProcessJobDropsZeroBaseTargetAndStillReleases(t *testing.T) {
	coord := coordinator.New(func(uint64, uint64, uint64, uint64, string) {}, 16)
	coord.OnNewBlock(1, [32]byte{}, 100)

	q := queue.New(1)
	var released uint64
	p := New(q, coord, shabal256.Width1, func(n uint64) { released = n })

	j := buildJob(0, 2, 1, 0, [32]byte{})
	p.processJob(j)

	require.Equal(t, j.MemorySize, released)
}

func TestProcessJobSubmitsLocalMinimumWithLowerNonceOnTie(t *testing.T) {
	coord := coordinator.New(func(nonce, account, deadline, block uint64, path string) {
		// both scoops hold the same bytes, so their deadlines tie; nonce 0
		// must win because it is scanned first.
		require.Equal(t, uint64(0), nonce)
	}, 16)
	coord.OnNewBlock(1, [32]byte{}, 1)

	q := queue.New(1)
	var released uint64
	p := New(q, coord, shabal256.Width1, func(n uint64) { released = n })

	j := buildJob(0, 2, 1, 1, [32]byte{})
	copy(j.Buffer[64:128], j.Buffer[:64])
	p.processJob(j)

	require.Equal(t, j.MemorySize, released)
	_, _, ok := coord.BestDeadline(1)
	require.True(t, ok)
}

func TestPoolStartAndWaitDrainsQueueThenExits(t *testing.T) {
	coord := coordinator.New(func(uint64, uint64, uint64, uint64, string) {}, 16)
	coord.OnNewBlock(1, [32]byte{}, 1000)

	q := queue.New(4)
	var mu sync.Mutex
	var released int
	p := New(q, coord, shabal256.Width1, func(uint64) {
		mu.Lock()
		released++
		mu.Unlock()
	})
	p.Start(2)

	for i := 0; i < 4; i++ {
		require.True(t, q.Enqueue(buildJob(uint64(i), 3, 1, 1000, [32]byte{})))
	}
	q.Shutdown(nil)
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 4, released)
}
