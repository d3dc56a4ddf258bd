// Package job defines the unit of work handed from a plot reader to a
// verifier worker: one slab of scoop data read from one plot file for one
// block.
package job

// VerifyJob is created by exactly one reader and consumed by exactly one
// verifier, which is responsible for releasing MemorySize back to the
// arbiter on every exit path (§3's ownership invariant).
type VerifyJob struct {
	Buffer     []byte // ScoopCount() scoops of 64 bytes, scoop i at Buffer[i*64:(i+1)*64]
	AccountID  uint64
	NonceStart uint64 // first nonce number of the plot file (from filename)
	NonceRead  uint64 // offset within the file, in nonces, where this slab begins
	InputPath  string
	Block      uint64
	Gensig     [32]byte
	BaseTarget uint64
	MemorySize uint64 // bytes checked out from the arbiter for Buffer
}

// ScoopCount returns the number of scoops (and therefore nonces) in Buffer.
func (j *VerifyJob) ScoopCount() int {
	return len(j.Buffer) / 64
}

// Scoop returns the 64-byte scoop record at index i.
func (j *VerifyJob) Scoop(i int) []byte {
	return j.Buffer[i*64 : (i+1)*64]
}

// Nonce returns the absolute nonce number for scoop index i.
func (j *VerifyJob) Nonce(i int) uint64 {
	return j.NonceStart + j.NonceRead + uint64(i)
}
