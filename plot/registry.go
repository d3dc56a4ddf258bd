package plot

import (
	"encoding/binary"
	"encoding/json"
	"hash"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"
	"github.com/holiman/bloomfilter/v2"
	sha256simd "github.com/minio/sha256-simd"
	"golang.org/x/xerrors"
)

// fingerprintPool reuses pooled SIMD SHA-256 hashers across rescans, the
// same shaPool pattern the teacher package uses for its own tree hashing.
var fingerprintPool = sync.Pool{New: func() interface{} { return sha256simd.New() }}

// Registry tracks the set of plot files currently known to the miner and
// supports re-enumerating its configured locations (supplementing the
// original creepMiner config's rescan()) without disturbing an in-flight
// scan: callers read Files() once per block via a snapshot slice.
type Registry struct {
	mu           sync.Mutex
	files        map[string]*File
	fingerprints map[string]uint64
	bloom        *bloomfilter.Filter
	cachePath    string
}

// NewRegistry constructs an empty registry. cachePath, if non-empty, is
// where the fingerprint cache is persisted between restarts; pass "" to keep
// everything in memory only.
func NewRegistry(cachePath string) (*Registry, error) {
	bloom, err := bloomfilter.NewOptimal(1<<20, 0.001)
	if err != nil {
		return nil, xerrors.Errorf("plot: constructing bloom filter: %w", err)
	}
	r := &Registry{
		files:        make(map[string]*File),
		fingerprints: make(map[string]uint64),
		bloom:        bloom,
		cachePath:    cachePath,
	}
	if cachePath != "" {
		if err := r.load(); err != nil && !os.IsNotExist(err) {
			return nil, xerrors.Errorf("plot: loading fingerprint cache: %w", err)
		}
	}
	return r, nil
}

// Files returns a snapshot of the currently registered plot files.
func (r *Registry) Files() []*File {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*File, 0, len(r.files))
	for _, f := range r.files {
		out = append(out, f)
	}
	return out
}

// Rescan walks locations (files or directories, directories recursively),
// registers any plot file not already known or whose fingerprint changed,
// and retires any previously known file no longer present. It returns the
// added and removed files.
func (r *Registry) Rescan(locations []string) (added, removed []*File, err error) {
	seen := make(map[string]struct{})

	for _, loc := range locations {
		st, statErr := os.Stat(loc)
		if statErr != nil {
			continue
		}
		if !st.IsDir() {
			a, ok := r.considerFile(loc, st.Size(), st.ModTime().Unix())
			if ok {
				added = append(added, a)
			}
			seen[loc] = struct{}{}
			continue
		}
		walkErr := filepath.Walk(loc, func(path string, info os.FileInfo, werr error) error {
			if werr != nil || info.IsDir() {
				return nil
			}
			seen[path] = struct{}{}
			if a, ok := r.considerFile(path, info.Size(), info.ModTime().Unix()); ok {
				added = append(added, a)
			}
			return nil
		})
		if walkErr != nil {
			err = xerrors.Errorf("plot: walking %s: %w", loc, walkErr)
		}
	}

	r.mu.Lock()
	for path, f := range r.files {
		if _, ok := seen[path]; !ok {
			removed = append(removed, f)
			delete(r.files, path)
			delete(r.fingerprints, path)
		}
	}
	r.mu.Unlock()

	if r.cachePath != "" {
		if saveErr := r.save(); saveErr != nil {
			err = xerrors.Errorf("plot: saving fingerprint cache: %w", saveErr)
		}
	}
	return added, removed, err
}

// considerFile registers path if it parses as a valid plot filename and its
// fingerprint is new or changed; it always skips files that fail to parse or
// whose declared size disagrees with size, logging is left to the caller.
func (r *Registry) considerFile(path string, size, mtime int64) (*File, bool) {
	fp := fingerprint(path, size, mtime)

	r.mu.Lock()
	maybeKnown := r.bloom.Contains(hashKey(fp))
	if maybeKnown {
		if existing, ok := r.fingerprints[path]; ok && existing == fp {
			if _, registered := r.files[path]; registered {
				r.mu.Unlock()
				return nil, false
			}
		}
	}
	r.bloom.Add(hashKey(fp))
	r.mu.Unlock()

	f, err := NewFile(path, size)
	if err != nil {
		return nil, false
	}

	r.mu.Lock()
	r.files[path] = f
	r.fingerprints[path] = fp
	r.mu.Unlock()
	return f, true
}

func fingerprint(path string, size, mtime int64) uint64 {
	h := fingerprintPool.Get().(hash.Hash)
	h.Reset()
	h.Write([]byte(path))
	var tmp [16]byte
	binary.LittleEndian.PutUint64(tmp[:8], uint64(size))
	binary.LittleEndian.PutUint64(tmp[8:], uint64(mtime))
	h.Write(tmp[:])
	sum := h.Sum(nil)
	fingerprintPool.Put(h)
	return binary.LittleEndian.Uint64(sum)
}

// hashKey adapts a precomputed uint64 fingerprint to the hash.Hash64
// interface bloomfilter.Filter expects, so the bloom filter can key off the
// SIMD-computed fingerprint directly instead of re-hashing it.
type hashKey uint64

func (k hashKey) Write(p []byte) (int, error) { return len(p), nil }
func (k hashKey) Sum(b []byte) []byte         { return b }
func (k hashKey) Reset()                      {}
func (k hashKey) Size() int                   { return 8 }
func (k hashKey) BlockSize() int              { return 8 }
func (k hashKey) Sum64() uint64               { return uint64(k) }

type cacheEntry struct {
	Path        string `json:"path"`
	Fingerprint uint64 `json:"fingerprint"`
}

func (r *Registry) save() error {
	r.mu.Lock()
	entries := make([]cacheEntry, 0, len(r.fingerprints))
	for path, fp := range r.fingerprints {
		entries = append(entries, cacheEntry{Path: path, Fingerprint: fp})
	}
	r.mu.Unlock()

	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	compressed := snappy.Encode(nil, raw)
	return os.WriteFile(r.cachePath, compressed, 0o644)
}

func (r *Registry) load() error {
	compressed, err := os.ReadFile(r.cachePath)
	if err != nil {
		return err
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return xerrors.Errorf("decoding snappy cache: %w", err)
	}
	var entries []cacheEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return xerrors.Errorf("decoding cache json: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.fingerprints[e.Path] = e.Fingerprint
		r.bloom.Add(hashKey(e.Fingerprint))
	}
	return nil
}
