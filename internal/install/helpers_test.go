package install

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/fdbesanto2/portalr/internal/version"
)

// zipEntry is one entry of a test archive. Names ending in "/" are
// directories; a non-empty Link makes a symlink.
type zipEntry struct {
	Name string
	Body string
	Link string
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		switch {
		case e.Link != "":
			hdr.SetMode(os.ModeSymlink | 0777)
		case e.Name[len(e.Name)-1] == '/':
			hdr.SetMode(os.ModeDir | 0755)
		default:
			hdr.SetMode(0644)
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		body := e.Body
		if e.Link != "" {
			body = e.Link
		}
		if e.Name[len(e.Name)-1] != '/' {
			_, err = w.Write([]byte(body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// snapshotZip mimics a repository snapshot archive for release tag.
func snapshotZip(t *testing.T, tag string, files map[string]string) []byte {
	t.Helper()
	top := "weecology-PortalData-" + tag + "/"
	entries := []zipEntry{{Name: top}}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entries = append(entries, zipEntry{Name: top + name, Body: files[name]})
	}
	return buildZip(t, entries...)
}

func zipServer(t *testing.T, archives map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

type fakeResolver struct {
	entries map[string]version.ReleaseEntry
	err     error
	calls   int
	archive bool
}

func (f *fakeResolver) Resolve(_ context.Context, selector string, useArchive bool) (version.ReleaseEntry, error) {
	f.calls++
	f.archive = useArchive
	if f.err != nil {
		return version.ReleaseEntry{}, f.err
	}
	e, ok := f.entries[selector]
	if !ok {
		return version.ReleaseEntry{}, &version.ResolverError{Type: version.ErrTypeNotFound, Source: "fake", Version: selector, Message: "no release matches"}
	}
	return e, nil
}

func entryFor(t *testing.T, server *httptest.Server, tag string) version.ReleaseEntry {
	t.Helper()
	v, err := version.ParseLenient(tag)
	require.NoError(t, err)
	return version.ReleaseEntry{Tag: tag, Version: v, URL: server.URL + "/zipball/" + tag}
}

// treeFiles lists every non-directory under root, relative and slash-separated.
func treeFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(root, path)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
