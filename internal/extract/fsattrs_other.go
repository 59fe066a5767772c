//go:build !linux && !darwin

package extract

import (
	"io/fs"
	"time"
)

func platformTimes(_ string, _ fs.FileInfo) (created, accessed *time.Time) {
	return nil, nil
}

func platformIdentity(_ fs.FileInfo) (inode *uint64, owner string) {
	return nil, ""
}
