//go:build linux

package action

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// addedAt prefers the file's birth time and falls back to its mtime when the
// filesystem does not record one.
func addedAt(path string, info fs.FileInfo) time.Time {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx)
	if err == nil && stx.Mask&unix.STATX_BTIME != 0 && stx.Btime.Sec > 0 {
		return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	return info.ModTime()
}
