//go:build !windows

package tmplstream

import (
	"os"
	"syscall"
)

// preserveOwner gives the temp file at path the owner of the file it
// replaces. Failures are ignored; only root may chown to another user.
func preserveOwner(path string, prev os.FileInfo) {
	if stat, ok := prev.Sys().(*syscall.Stat_t); ok {
		_ = os.Lchown(path, int(stat.Uid), int(stat.Gid))
	}
}
