//go:build linux

package extract

import (
	"io/fs"
	"os/user"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// platformTimes reports birth and access times. Linux only exposes
// birth time through statx, and not every filesystem fills it in.
func platformTimes(path string, info fs.FileInfo) (created, accessed *time.Time) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		accessed = utcTime(st.Atim.Sec, st.Atim.Nsec)
	}

	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &stx)
	if err == nil && stx.Mask&unix.STATX_BTIME != 0 {
		created = utcTime(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	return created, accessed
}

func platformIdentity(info fs.FileInfo) (inode *uint64, owner string) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, ""
	}
	ino := st.Ino
	inode = &ino

	uid := strconv.FormatUint(uint64(st.Uid), 10)
	if u, err := user.LookupId(uid); err == nil {
		return inode, u.Username
	}
	return inode, uid
}
