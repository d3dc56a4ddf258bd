package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	account, start, nonces, stagger, err := ParseFilename("/mnt/plots/1234_0_8192_4096")
	require.NoError(t, err)
	require.Equal(t, uint64(1234), account)
	require.Equal(t, uint64(0), start)
	require.Equal(t, uint64(8192), nonces)
	require.Equal(t, uint64(4096), stagger)
}

func TestParseFilenameRejectsMalformed(t *testing.T) {
	for _, name := range []string{"", "a_b_c_d", "1_2_3", "1_2_3_4_5", "1_2_0_4"} {
		_, _, _, _, err := ParseFilename(name)
		require.Error(t, err, name)
	}
}

func TestNewFileRejectsSizeMismatch(t *testing.T) {
	_, err := NewFile("1234_0_2_1", 1)
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestNewFileAccepts(t *testing.T) {
	f, err := NewFile("1234_0_2_1", 2*NonceSize)
	require.NoError(t, err)
	require.Equal(t, uint64(2), f.StaggerCount())
}

func TestPlanSlabsCoversEveryNonceExactlyOnce(t *testing.T) {
	f, err := NewFile("1_0_8192_4096", 8192*NonceSize)
	require.NoError(t, err)

	for _, cap := range []uint64{1, 3, 100, 4096, 8192} {
		seen := make(map[uint64]bool)
		slabs := PlanSlabs(f, 17, cap)
		for _, s := range slabs {
			for i := uint64(0); i < s.Count; i++ {
				nonce := s.NonceOffset + i
				require.False(t, seen[nonce], "nonce %d covered twice with cap %d", nonce, cap)
				seen[nonce] = true
			}
		}
		require.Len(t, seen, int(f.Nonces))
	}
}

func TestPlanSlabsSeeksWithinEachStagger(t *testing.T) {
	f, err := NewFile("1_0_8192_4096", 8192*NonceSize)
	require.NoError(t, err)

	slabs := PlanSlabs(f, 17, 4096)
	require.Len(t, slabs, 2) // 2 staggers, one slab each at cap==stagger
	require.Equal(t, int64(17)*4096*ScoopSize, slabs[0].ByteOffset)
	require.Equal(t, int64(4096)*NonceSize+int64(17)*4096*ScoopSize, slabs[1].ByteOffset)
}

func TestMaxSlabScoops(t *testing.T) {
	require.Equal(t, uint64(1), MaxSlabScoops(0))
	require.Equal(t, uint64(1), MaxSlabScoops(ScoopSize))
	require.Equal(t, uint64(4096), MaxSlabScoops(256<<10))
	require.Equal(t, uint64(4096), MaxSlabScoops(1<<30)) // capped at ScoopsPerNonce
}

func TestRegistryRescanAddsAndRemoves(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewRegistry("")
	require.NoError(t, err)

	path := filepath.Join(dir, "1_0_1_1")
	require.NoError(t, os.WriteFile(path, make([]byte, NonceSize), 0o644))

	added, removed, err := reg.Rescan([]string{dir})
	require.NoError(t, err)
	require.Len(t, added, 1)
	require.Empty(t, removed)
	require.Len(t, reg.Files(), 1)

	require.NoError(t, os.Remove(path))
	added, removed, err = reg.Rescan([]string{dir})
	require.NoError(t, err)
	require.Empty(t, added)
	require.Len(t, removed, 1)
	require.Empty(t, reg.Files())
}

func TestRegistryRescanIsIdempotentWithoutChange(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewRegistry("")
	require.NoError(t, err)

	path := filepath.Join(dir, "1_0_1_1")
	require.NoError(t, os.WriteFile(path, make([]byte, NonceSize), 0o644))

	_, _, err = reg.Rescan([]string{dir})
	require.NoError(t, err)
	added, removed, err := reg.Rescan([]string{dir})
	require.NoError(t, err)
	require.Empty(t, added)
	require.Empty(t, removed)
}
