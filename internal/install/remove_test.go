package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveTree_Missing(t *testing.T) {
	assert.NoError(t, RemoveTree(filepath.Join(t.TempDir(), "absent")))
}

func TestRemoveTree_NestedTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "PortalData")
	writeFile(t, filepath.Join(root, "version.txt"), "1.0.0")
	writeFile(t, filepath.Join(root, "Rodents", "a.csv"), "a")
	writeFile(t, filepath.Join(root, "Rodents", "deep", "deeper", "b.csv"), "b")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "dir"), 0755))

	require.NoError(t, RemoveTree(root))
	assert.NoDirExists(t, root)
}

func TestRemoveTree_DoesNotFollowSymlinks(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(base, "outside")
	writeFile(t, filepath.Join(outside, "precious.csv"), "keep")

	root := filepath.Join(base, "PortalData")
	writeFile(t, filepath.Join(root, "version.txt"), "1.0.0")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked-dir")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "precious.csv"), filepath.Join(root, "linked-file")))

	require.NoError(t, RemoveTree(root))
	assert.NoDirExists(t, root)
	assert.FileExists(t, filepath.Join(outside, "precious.csv"))
}

func TestRemoveTree_SymlinkRoot(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "real")
	writeFile(t, filepath.Join(target, "a.csv"), "a")
	link := filepath.Join(base, "PortalData")
	require.NoError(t, os.Symlink(target, link))

	require.NoError(t, RemoveTree(link))
	_, err := os.Lstat(link)
	assert.True(t, os.IsNotExist(err), "link should be gone")
	assert.FileExists(t, filepath.Join(target, "a.csv"))
}

func TestRemoveTree_FileRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PortalData")
	writeFile(t, path, "not a directory")

	require.NoError(t, RemoveTree(path))
	assert.NoFileExists(t, path)
}

func TestRemoveTree_ReportsFileFailures(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := filepath.Join(t.TempDir(), "PortalData")
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "a.csv"), "a")
	writeFile(t, filepath.Join(root, "free.csv"), "b")
	require.NoError(t, os.Chmod(locked, 0555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	err := RemoveTree(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to remove 1 of 2 files")
	// Directories stay when any file could not be removed.
	assert.DirExists(t, locked)
	assert.FileExists(t, filepath.Join(locked, "a.csv"))
	assert.NoFileExists(t, filepath.Join(root, "free.csv"))
}
