//go:build !linux

package reader

import "os"

// adviseSequential is a no-op outside Linux; fadvise has no portable
// equivalent exposed by golang.org/x/sys on other platforms worth adding
// here.
func adviseSequential(f *os.File) {}
