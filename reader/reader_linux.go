package reader

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential hints the kernel to read ahead aggressively, the same
// syscall-tuning role optimize_linux.go plays for the teacher's pipe-size
// tuning: best-effort, errors are ignored since the scan is correct either
// way, just potentially slower.
func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
