package install

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// isPathWithinDirectory checks if targetPath is safely contained within basePath
// SECURITY: Prevents path traversal attacks where malicious archives could write outside destPath
func isPathWithinDirectory(targetPath, basePath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	// The separator keeps /tmp/foo from matching /tmp/foobar.
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

// validateSymlinkTarget validates that a symlink target is safe
// SECURITY: Prevents symlink attacks where malicious archives point to sensitive locations
func validateSymlinkTarget(linkTarget, linkLocation, destPath string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("absolute symlink targets are not allowed: %s -> %s", linkLocation, linkTarget)
	}
	resolvedTarget := filepath.Join(filepath.Dir(linkLocation), linkTarget)
	if !isPathWithinDirectory(resolvedTarget, destPath) {
		return fmt.Errorf("symlink target escapes destination directory: %s -> %s (resolves to %s)",
			linkLocation, linkTarget, resolvedTarget)
	}
	return nil
}

// archiveLayout describes a snapshot archive.
type archiveLayout struct {
	TopLevel string // Name of the single top-level directory
	Files    int    // Regular files and symlinks, directories excluded
}

// entryName normalizes a zip entry name to slash form without a leading "./".
func entryName(f *zip.File) string {
	name := strings.ReplaceAll(f.Name, `\`, "/")
	return strings.TrimPrefix(name, "./")
}

// safeEntryName rejects absolute names and any ".." component.
func safeEntryName(name string) bool {
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// inspectArchive requires the archive to hold exactly one top-level
// directory, as repository snapshot archives do.
func inspectArchive(r *zip.Reader) (archiveLayout, error) {
	var layout archiveLayout
	tops := make(map[string]bool)

	for _, f := range r.File {
		name := entryName(f)
		if name == "" {
			continue
		}
		if !safeEntryName(name) {
			return archiveLayout{}, fmt.Errorf("unsafe entry name: %q", f.Name)
		}
		top, rest, hasRest := strings.Cut(name, "/")
		if !hasRest && !f.FileInfo().IsDir() {
			return archiveLayout{}, fmt.Errorf("unexpected top-level file %q", f.Name)
		}
		tops[top] = true
		layout.TopLevel = top
		if rest != "" && !f.FileInfo().IsDir() {
			layout.Files++
		}
	}

	switch len(tops) {
	case 0:
		return archiveLayout{}, errors.New("archive is empty")
	case 1:
		return layout, nil
	default:
		names := make([]string, 0, len(tops))
		for name := range tops {
			names = append(names, name)
		}
		return archiveLayout{}, fmt.Errorf("expected one top-level directory, found %d (%s)",
			len(tops), strings.Join(names, ", "))
	}
}

// extractArchive writes every entry of r under destPath and returns the
// number of files and symlinks written. Symlinks are created after all
// directories and regular files, and no entry is ever written beneath an
// existing symlink.
func extractArchive(r *zip.Reader, destPath string) (int, error) {
	written := 0
	var links []*zip.File
	for _, f := range r.File {
		name := entryName(f)
		if name == "" {
			continue
		}
		target := filepath.Join(destPath, filepath.FromSlash(name))

		// SECURITY: Validate that target path is within destPath (prevents path traversal)
		if !isPathWithinDirectory(target, destPath) {
			return written, fmt.Errorf("zip entry escapes destination directory: %s", f.Name)
		}

		mode := f.Mode()
		if mode&os.ModeSymlink != 0 {
			links = append(links, f)
			continue
		}
		if err := ensureNoSymlinkParents(target, destPath); err != nil {
			return written, err
		}
		if mode.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return written, fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, fmt.Errorf("failed to create parent directory: %w", err)
		}
		if err := extractFile(f, target); err != nil {
			return written, err
		}
		written++
	}

	var created []string
	for _, f := range links {
		target := filepath.Join(destPath, filepath.FromSlash(entryName(f)))
		if err := ensureNoSymlinkParents(target, destPath); err != nil {
			return written, err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, fmt.Errorf("failed to create parent directory: %w", err)
		}
		if err := extractSymlink(f, target, destPath); err != nil {
			return written, err
		}
		created = append(created, target)
		written++
	}

	// Each link was checked lexically on its own; chains are only visible
	// once every link exists.
	if err := verifySymlinks(created, destPath); err != nil {
		return written, err
	}
	return written, nil
}

// ensureNoSymlinkParents fails if any directory between destPath and target
// is a symlink.
// SECURITY: Prevents writes that follow an extracted link out of destPath
func ensureNoSymlinkParents(target, destPath string) error {
	rel, err := filepath.Rel(destPath, filepath.Dir(target))
	if err != nil {
		return fmt.Errorf("failed to resolve entry path: %w", err)
	}
	if rel == "." {
		return nil
	}
	cur := destPath
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", cur, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("zip entry is written through a symlink: %s", target)
		}
	}
	return nil
}

// verifySymlinks resolves every created link and fails if one lands outside
// destPath. Dangling links were already checked lexically.
func verifySymlinks(links []string, destPath string) error {
	if len(links) == 0 {
		return nil
	}
	root, err := filepath.EvalSymlinks(destPath)
	if err != nil {
		return fmt.Errorf("failed to resolve destination directory: %w", err)
	}
	for _, link := range links {
		resolved, err := filepath.EvalSymlinks(link)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to resolve symlink %s: %w", link, err)
		}
		if !isPathWithinDirectory(resolved, root) {
			return fmt.Errorf("symlink target escapes destination directory: %s (resolves to %s)", link, resolved)
		}
	}
	return nil
}

func extractSymlink(f *zip.File, target, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open symlink in zip: %w", err)
	}
	defer rc.Close()

	// Symlink targets are short paths.
	linkTarget, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return fmt.Errorf("failed to read symlink target: %w", err)
	}
	if err := validateSymlinkTarget(string(linkTarget), target, destPath); err != nil {
		return err
	}
	if err := os.Symlink(string(linkTarget), target); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open file in zip: %w", err)
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to write file %s: %w", f.Name, err)
	}
	return out.Close()
}
