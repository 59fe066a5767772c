package extract

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"veridoc/internal/metadata"
)

// Attributes collects filesystem metadata and content digests for a
// file. Hashes are computed in a single streaming pass so large
// documents are never held in memory. Timestamps the platform cannot
// report stay absent.
func Attributes(path string) (metadata.FilesystemMeta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return metadata.FilesystemMeta{}, fmt.Errorf("stat %q: %w", path, err)
	}

	mod := info.ModTime().UTC()
	attrs := metadata.FilesystemMeta{
		Path:      path,
		SizeBytes: info.Size(),
		Mode:      info.Mode(),
		Modified:  &mod,
	}

	if format, err := metadata.FormatForPath(path); err == nil {
		attrs.MIMEType = format.MIMEType()
	}

	attrs.Created, attrs.Accessed = platformTimes(path, info)
	attrs.Inode, attrs.Owner = platformIdentity(info)

	if err := digest(path, &attrs); err != nil {
		return metadata.FilesystemMeta{}, err
	}
	return attrs, nil
}

func digest(path string, attrs *metadata.FilesystemMeta) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	md5h := md5.New()
	sha1h := sha1.New()
	sha256h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(md5h, sha1h, sha256h), f); err != nil {
		return fmt.Errorf("hash %q: %w", path, err)
	}

	attrs.MD5 = hex.EncodeToString(md5h.Sum(nil))
	attrs.SHA1 = hex.EncodeToString(sha1h.Sum(nil))
	attrs.SHA256 = hex.EncodeToString(sha256h.Sum(nil))
	return nil
}

func utcTime(sec, nsec int64) *time.Time {
	t := time.Unix(sec, nsec).UTC()
	return &t
}
