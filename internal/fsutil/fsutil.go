// Package fsutil implements the file mutations shared by the configuration
// phases: atomic writes, timestamped backups, and symlink replacement.
// Every operation is idempotent so a phase can be re-run safely.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// backupTimeFormat is the suffix layout for backup copies.
const backupTimeFormat = "20060102-150405"

// WriteFileAtomic writes data to path atomically using a temp file and rename.
// Readers never observe a partially-written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir, name := filepath.Split(path)
	tmpPath := filepath.Join(dir, ".tmp-"+name)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("fsutil: write %s: %w", path, err)
	}
	defer os.Remove(tmpPath) // clean up on error

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("fsutil: write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsutil: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("fsutil: write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("fsutil: write %s: %w", path, err)
	}
	return nil
}

// BackupFile copies path to a timestamped sibling before it is overwritten.
// Only regular files are backed up: symlinks and missing paths return an
// empty backup path and no error, since there is nothing worth preserving.
func BackupFile(path string) (string, error) {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fsutil: backup %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return "", nil
	}

	backupPath := fmt.Sprintf("%s.bak-%s", path, time.Now().Format(backupTimeFormat))

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fsutil: backup %s: %w", path, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fi.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("fsutil: backup %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(backupPath)
		return "", fmt.Errorf("fsutil: backup %s: %w", path, err)
	}
	return backupPath, nil
}

// ReplaceWithSymlink atomically replaces linkPath with a symlink to target.
// Any pre-existing regular file at linkPath is preserved via BackupFile
// first. If linkPath is already a symlink to target, nothing is done.
func ReplaceWithSymlink(target, linkPath string) error {
	if current, err := os.Readlink(linkPath); err == nil && current == target {
		return nil
	}

	if _, err := BackupFile(linkPath); err != nil {
		return err
	}

	dir, name := filepath.Split(linkPath)
	tmpPath := filepath.Join(dir, ".tmp-"+name)
	os.Remove(tmpPath)

	if err := os.Symlink(target, tmpPath); err != nil {
		return fmt.Errorf("fsutil: symlink %s -> %s: %w", linkPath, target, err)
	}
	if err := os.Rename(tmpPath, linkPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fsutil: symlink %s -> %s: %w", linkPath, target, err)
	}
	return nil
}
