package deps

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Publish points link at target. With copyOnly unset it swaps in a symlink
// (created beside link, then renamed over it) and falls back to a copy when
// links are unavailable. Either way link is replaced in one rename.
func Publish(target, link string, copyOnly bool) error {
	if fi, err := os.Lstat(link); err == nil && fi.IsDir() {
		if err := os.RemoveAll(link); err != nil {
			return fmt.Errorf("remove directory at %s: %w", link, err)
		}
	}
	if !copyOnly {
		if err := atomicSymlink(target, link); err == nil {
			return nil
		}
	}
	return atomicCopy(target, link)
}

func atomicSymlink(target, link string) error {
	tempPath := link + ".new"
	os.Remove(tempPath)
	if err := os.Symlink(target, tempPath); err != nil {
		return fmt.Errorf("create symlink %s -> %s: %w", tempPath, target, err)
	}
	if err := os.Rename(tempPath, link); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename %s -> %s: %w", tempPath, link, err)
	}
	return nil
}

func atomicCopy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err = io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err = os.Chmod(tmpName, fi.Mode().Perm()); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err = os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s -> %s: %w", tmpName, dst, err)
	}
	return nil
}
