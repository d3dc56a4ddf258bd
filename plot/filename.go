package plot

import (
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// ParseFilename splits a plot file's base name into its four grammar fields:
// account_startNonce_nonces_stagger. The full path (possibly with directory
// components) may be passed in; only the base name is parsed.
func ParseFilename(path string) (account, startNonce, nonces, stagger uint64, err error) {
	name := filepath.Base(path)
	parts := strings.Split(name, "_")
	if len(parts) != 4 {
		err = xerrors.Errorf("invalid plot filename %q: expected account_startNonce_nonces_stagger", name)
		return
	}

	fields := [4]*uint64{&account, &startNonce, &nonces, &stagger}
	for i, part := range parts {
		v, perr := strconv.ParseUint(part, 10, 64)
		if perr != nil {
			err = xerrors.Errorf("invalid plot filename %q: field %d (%q) is not a decimal integer: %w", name, i, part, perr)
			return
		}
		*fields[i] = v
	}
	if nonces == 0 {
		err = xerrors.Errorf("invalid plot filename %q: zero nonces", name)
	}
	return
}
