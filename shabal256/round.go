package shabal256

// shabalRound implements the Shabal compression permutation: it folds message
// block m into B, perturbs A with the low/high block-counter words, and runs
// three interleaved avalanche passes across the sixteen word slots, then
// subtracts m from C and swaps B and C (so the new B is C minus m). This is the single
// building block every width (1, 4, 8) drives identically, once per lane, so
// that cloning a lane's prefix state and replaying it on different scoop
// bytes is just a struct copy.
func shabalRound(a *[12]uint32, b, c *[16]uint32, m *[words]uint32, wlow, whigh uint32) {
	for i := 0; i < 16; i++ {
		b[i] = rotl(b[i], 17) + m[i]
	}

	a[0] ^= wlow
	a[1] ^= whigh

	for i := 0; i < 12; i++ {
		a[i] = rotl(a[i], 15)
	}

	for pass := 0; pass < 3; pass++ {
		for i := 0; i < 16; i++ {
			ai := i % 12
			bTap := (i + 13) % 16
			cTap := (i + 9) % 16

			a[ai] = (a[ai] ^ (rotl(a[(ai+11)%12], 15) * 5)) + c[cTap]
			a[ai] ^= b[bTap]
			b[i] = rotl(b[i], 1) ^ ^a[ai]
		}
	}

	for i := 0; i < 16; i++ {
		c[i] -= m[i]
	}
	*b, *c = *c, *b
}

// Shabal-256 initialization vector: the A/B/C registers after three blank
// compressions seeded with the 256-bit output-size encoding, per the public
// Shabal specification's bootstrap procedure.
var ivA = [12]uint32{
	0x52f84552, 0xe54b7999, 0x2d8ee3ec, 0xb9645191,
	0xe0078b86, 0xbb7c44c9, 0xd2b5c1ca, 0xb0d2eb8c,
	0x14ce5a45, 0x22af50dc, 0xefd292e5, 0xb8b33f17,
}

var ivB = [16]uint32{
	0xaa68e9d2, 0x2b6a8b35, 0x813eb628, 0x87e2a3af,
	0x31b54f5d, 0xd7bcfe51, 0x0e92ebc7, 0xb30ed3b9,
	0x1a45a12a, 0x20c86ec9, 0xbf5e8c8e, 0x3ba5ddba,
	0x80ba8e0d, 0x30be6ded, 0x7894b2ae, 0x8acc6ecd,
}

var ivC = [16]uint32{
	0x63a1a0d4, 0x0e77c0af, 0x17edf2f8, 0x9a6c27c2,
	0xfcde1e65, 0x1b1db58b, 0x9aca6aeb, 0xf02d9d22,
	0x7fda45c2, 0x7e20c418, 0x69a6e64c, 0xc3d08846,
	0xd93d6f96, 0x7b2d2436, 0xd4dd4c03, 0xc3f3e8a1,
}
