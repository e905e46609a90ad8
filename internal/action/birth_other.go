//go:build !linux

package action

import (
	"io/fs"
	"time"
)

func addedAt(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
