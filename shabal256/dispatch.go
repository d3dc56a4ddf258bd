package shabal256

import "github.com/klauspost/cpuid/v2"

// Width identifies one of the three supported lane counts. A verifier worker
// picks one at startup and never switches mid-run, so the hot loop in
// verifier.Pool dispatches to concrete Wide4/Wide8/Digest methods directly
// instead of going through an interface on every job.
type Width int

const (
	Width1 Width = 1
	Width4 Width = 4
	Width8 Width = 8
)

// SelectWidth picks the widest lane count the running CPU can usefully
// support. It plays the same role cpuid plays inside minio/sha256-simd
// itself: a one-time feature check that decides which code path a hot loop
// takes, never re-checked per call.
func SelectWidth() Width {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX2):
		return Width8
	case cpuid.CPU.Supports(cpuid.SSE2, cpuid.SSSE3):
		return Width4
	default:
		return Width1
	}
}
