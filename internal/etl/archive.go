package etl

// archive.go moves processed input files out of the intake directory so
// the same file is not picked up twice. The archived name is prefixed
// with the processing timestamp, matching the layout reporting queries
// and operators already expect: <archive_dir>/<timestamp>_<name>.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// archiveTimestampLayout orders archived files lexically by time.
const archiveTimestampLayout = "20060102_150405"

// archiveFile moves path into dir, returning the archived path. A rename
// across filesystems falls back to copy-then-remove.
func archiveFile(path, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	dest := filepath.Join(dir, time.Now().Format(archiveTimestampLayout)+"_"+filepath.Base(path))
	if err := os.Rename(path, dest); err == nil {
		return dest, nil
	}

	if err := copyFile(path, dest); err != nil {
		return "", fmt.Errorf("archive %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("remove original after archive: %w", err)
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
