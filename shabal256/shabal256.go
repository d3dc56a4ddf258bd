// Package shabal256 implements the Shabal-256 hash function used by the
// Burstcoin proof-of-capacity scheme to derive a deadline from a generation
// signature and a scoop. It exposes the usual streaming hash.Hash interface
// for width-1 use, plus width-4 and width-8 batched variants (wide.go) that
// advance several independent lanes in lock-step for throughput.
package shabal256

import (
	"hash"
	"math/bits"

	"golang.org/x/xerrors"
)

// Size is the length in bytes of a Shabal-256 digest.
const Size = 32

// BlockSize is the Shabal-256 internal block size in bytes.
const BlockSize = 64

const words = BlockSize / 4

// state holds one lane's working registers plus the partial-block carry
// needed to implement streaming Write/Sum.
type state struct {
	a [12]uint32
	b [16]uint32
	c [16]uint32
	w uint64 // block counter, advanced once per ingested block

	buf    [BlockSize]byte
	buflen int
	closed bool
}

// Digest is a single-lane (width-1) Shabal-256 engine. The zero value is not
// usable; use New().
type Digest struct {
	state
}

var _ hash.Hash = (*Digest)(nil)

// New returns a Digest initialized to the Shabal-256 IV.
func New() *Digest {
	d := &Digest{}
	d.Reset()
	return d
}

func (d *Digest) Reset() {
	d.state = state{a: ivA, b: ivB, c: ivC}
}

func (d *Digest) Size() int      { return Size }
func (d *Digest) BlockSize() int { return BlockSize }

func (d *Digest) Write(p []byte) (int, error) {
	if d.closed {
		return 0, xerrors.New("shabal256: Write after Sum/Close")
	}
	n := len(p)
	if d.buflen > 0 {
		take := BlockSize - d.buflen
		if take > len(p) {
			take = len(p)
		}
		copy(d.buf[d.buflen:], p[:take])
		d.buflen += take
		p = p[take:]
		if d.buflen == BlockSize {
			d.ingest(d.buf[:])
			d.buflen = 0
		}
	}
	for len(p) >= BlockSize {
		d.ingest(p[:BlockSize])
		p = p[BlockSize:]
	}
	if len(p) > 0 {
		d.buflen = copy(d.buf[:], p)
	}
	return n, nil
}

// Sum finalizes a copy of the digest's state (the receiver remains usable for
// further Writes, per hash.Hash semantics) and appends the 32-byte result.
func (d *Digest) Sum(b []byte) []byte {
	clone := d.state
	clone.close()
	return clone.appendDigest(b)
}

// Close is a convenience used by the verifier pool: it finalizes in place and
// marks the engine unusable for further writes, avoiding the defensive copy
// Sum() makes. Re-use via Reset().
func (d *Digest) Close(out []byte) {
	d.close()
	d.closed = true
	copy(out, d.digestBytes())
}

func (s *state) close() {
	// Shabal padding: a single 1-bit (0x80 byte, since all lengths here are
	// byte-aligned) then zero-fill the final block, then run three extra
	// "whip" rounds that do not further increment the block counter's high
	// water mark beyond what ingest already tracks.
	var tail [BlockSize]byte
	copy(tail[:], s.buf[:s.buflen])
	tail[s.buflen] = 0x80
	s.ingest(tail[:])

	var m [words]uint32
	for i := 0; i < 3; i++ {
		shabalRound(&s.a, &s.b, &s.c, &m, uint32(s.w), uint32(s.w>>32))
	}
}

func (s *state) digestBytes() []byte {
	out := make([]byte, Size)
	for i := 0; i < 8; i++ {
		putLE32(out[i*4:], s.c[i+8])
	}
	return out
}

func (s *state) appendDigest(b []byte) []byte {
	return append(b, s.digestBytes()...)
}

func (s *state) ingest(block []byte) {
	var m [words]uint32
	for i := range m {
		m[i] = getLE32(block[i*4:])
	}
	s.compress(&m)
}

// compress runs one Shabal core permutation over the current A/B/C state for
// message block m, then advances the block counter.
func (s *state) compress(m *[words]uint32) {
	s.w++
	shabalRound(&s.a, &s.b, &s.c, m, uint32(s.w), uint32(s.w>>32))
}

func getLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// rotl is a local alias kept for readability at call sites in round.go.
func rotl(x uint32, n int) uint32 { return bits.RotateLeft32(x, n) }
