//go:build darwin

package extract

import (
	"io/fs"
	"os/user"
	"strconv"
	"syscall"
	"time"
)

func platformTimes(_ string, info fs.FileInfo) (created, accessed *time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	created = utcTime(st.Birthtimespec.Sec, st.Birthtimespec.Nsec)
	accessed = utcTime(st.Atimespec.Sec, st.Atimespec.Nsec)
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
