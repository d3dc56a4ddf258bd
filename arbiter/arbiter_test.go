package arbiter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestReserveReleaseKeepsOutstandingAtZero(t *testing.T) {
	a := New(1024)
	require.True(t, a.Reserve(256))
	require.Equal(t, uint64(256), a.Outstanding())
	a.Release(256)
	require.Equal(t, uint64(0), a.Outstanding())
}

func TestReserveNeverExceedsLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := New(100)
	require.True(t, a.Reserve(100))

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Reserve(1)
		a.Release(1)
	}()

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, uint64(100), a.Outstanding(), "second reserve must block while at the limit")

	a.Release(100)
	<-done
	require.Equal(t, uint64(0), a.Outstanding())
}

func TestReleaseZeroIsNoop(t *testing.T) {
	a := New(10)
	a.Release(0)
	require.Equal(t, uint64(0), a.Outstanding())
}

func TestAbortWakesWaiters(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := New(10)
	require.True(t, a.Reserve(10))

	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.Reserve(5)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	a.Abort()
	wg.Wait()

	for i, ok := range results {
		require.False(t, ok, "waiter %d should observe abort", i)
	}
}

func TestSetLimitDoesNotEvictOutstanding(t *testing.T) {
	a := New(1000)
	require.True(t, a.Reserve(900))
	a.SetLimit(10)
	require.Equal(t, uint64(900), a.Outstanding())
	require.Equal(t, uint64(10), a.Limit())
}

func TestNoStarvationUnderContention(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := New(64)
	const workers = 8
	const rounds = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				if !a.Reserve(8) {
					return
				}
				a.Release(8)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, uint64(0), a.Outstanding())
}
