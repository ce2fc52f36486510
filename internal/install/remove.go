package install

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// RemoveTree deletes root by enumerating it first and removing every file
// individually, then removing the emptied directories deepest first.
//
// Symlinks are removed as links and never followed. If any file cannot be
// removed the directories are left in place and the joined per-file errors
// are returned. A directory that is not empty when its turn comes (something
// was added during removal) fails the call instead of being force-deleted.
// A missing root is not an error.
func RemoveTree(root string) error {
	info, err := os.Lstat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		// Covers a root that is itself a symlink, even to a directory.
		return os.Remove(root)
	}

	var files, dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enumerate %s: %w", root, err)
	}

	var errs []error
	for _, path := range files {
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to remove %d of %d files under %s: %w",
			len(errs), len(files), root, errors.Join(errs...))
	}

	// WalkDir visits parents before children, so reverse order removes
	// children first.
	slices.Reverse(dirs)
	for _, dir := range dirs {
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("failed to remove directory: %w", err)
		}
	}
	return nil
}
