//go:build !windows

package fsutil

import (
	"os"

	"github.com/google/renameio/v2"
)

// atomicWriteFile writes a pending file next to path and renames it over
// path once fully written.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
