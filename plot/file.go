// Package plot parses the Burstcoin plot-file naming convention, computes
// scoop offsets within a plot's interleaved stagger layout, and keeps a
// registry of known plot files that can be rescanned without restarting the
// miner.
package plot

import (
	"golang.org/x/xerrors"
)

// NonceSize is the number of bytes a single nonce occupies in a plot file.
const NonceSize = 262144

// ScoopSize is the byte length of one scoop record.
const ScoopSize = 64

// ScoopsPerNonce is the number of scoops a nonce's footprint is divided into.
const ScoopsPerNonce = NonceSize / ScoopSize // 4096

// File describes one registered, immutable plot file.
type File struct {
	Path       string
	Size       int64
	Account    uint64
	StartNonce uint64
	Nonces     uint64
	Stagger    uint64
}

// ErrSizeMismatch is returned when a plot file's size on disk disagrees with
// the nonce count declared in its filename.
var ErrSizeMismatch = xerrors.New("plot: file size does not match filename-declared nonce count")

// NewFile validates size against the filename-declared nonce count and
// constructs a File. size is the file's actual size in bytes as reported by
// the filesystem.
func NewFile(path string, size int64) (*File, error) {
	account, startNonce, nonces, stagger, err := ParseFilename(path)
	if err != nil {
		return nil, xerrors.Errorf("plot: %w", err)
	}
	if stagger == 0 || nonces%stagger != 0 {
		return nil, xerrors.Errorf("plot: %s: stagger %d does not evenly divide %d nonces", path, stagger, nonces)
	}
	wantSize := int64(nonces) * NonceSize
	if size != wantSize {
		return nil, xerrors.Errorf("plot: %s: declares %d nonces (%d bytes) but file is %d bytes: %w",
			path, nonces, wantSize, size, ErrSizeMismatch)
	}
	return &File{
		Path:       path,
		Size:       size,
		Account:    account,
		StartNonce: startNonce,
		Nonces:     nonces,
		Stagger:    stagger,
	}, nil
}

// StaggerCount returns the number of staggers in this file.
func (f *File) StaggerCount() uint64 {
	return f.Nonces / f.Stagger
}
