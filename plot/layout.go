package plot

// Slab describes one contiguous read a reader should issue for a given
// (file, scoopNumber) scan: ByteOffset/ByteLength locate it in the plot
// file, NonceOffset is the file-relative nonce index of the slab's first
// scoop (used to compute absolute nonce numbers as StartNonce+NonceOffset+i),
// and Count is the number of scoops (one per nonce) the slab holds.
type Slab struct {
	StaggerIndex uint64
	NonceOffset  uint64
	Count        uint64
	ByteOffset   int64
	ByteLength   int64
}

// PlanSlabs lays out the sequence of reads needed to stream scoop
// scoopNumber across every stagger of f, each slab holding at most
// maxSlabScoops scoops. Staggers are visited in ascending order; within a
// stagger, slabs are visited in ascending nonce order, so two plans with
// different maxSlabScoops values touch the same nonces in the same relative
// order and therefore scan ties identically (lower nonce wins, §4.6).
func PlanSlabs(f *File, scoopNumber uint64, maxSlabScoops uint64) []Slab {
	if maxSlabScoops == 0 {
		maxSlabScoops = 1
	}
	staggerCount := f.StaggerCount()
	staggerBytes := int64(f.Stagger) * NonceSize
	scoopBlockBytes := int64(f.Stagger) * ScoopSize

	var slabs []Slab
	for s := uint64(0); s < staggerCount; s++ {
		staggerStart := int64(s) * staggerBytes
		scoopBlockStart := staggerStart + int64(scoopNumber)*scoopBlockBytes

		for off := uint64(0); off < f.Stagger; off += maxSlabScoops {
			count := maxSlabScoops
			if off+count > f.Stagger {
				count = f.Stagger - off
			}
			slabs = append(slabs, Slab{
				StaggerIndex: s,
				NonceOffset:  s*f.Stagger + off,
				Count:        count,
				ByteOffset:   scoopBlockStart + int64(off)*ScoopSize,
				ByteLength:   int64(count) * ScoopSize,
			})
		}
	}
	return slabs
}

// MaxSlabScoops returns the largest power-of-two scoop count whose byte size
// (count*ScoopSize) does not exceed capBytes, per §4.5's "largest power of
// two not exceeding a policy cap" rule. It never returns less than 1, so a
// cap smaller than one scoop still makes progress one scoop at a time.
func MaxSlabScoops(capBytes int64) uint64 {
	if capBytes < ScoopSize {
		return 1
	}
	n := uint64(1)
	for n*2*ScoopSize <= uint64(capBytes) && n < ScoopsPerNonce {
		n *= 2
	}
	return n
}
