package functional

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"

	"github.com/fdbesanto2/portalr/internal/version"
)

const (
	repoPath    = "/repos/weecology/PortalData/releases"
	archivePath = "/records/1215988"
)

// backend fakes the GitHub releases API, the archive landing page and the
// artifact downloads on one httptest server.
type backend struct {
	server *httptest.Server

	mu             sync.Mutex
	pages          map[int][]string // page number -> tags
	archiveVer     string
	status         int // non-zero makes the releases API fail
	releaseQueries int
}

func newBackend() *backend {
	b := &backend{pages: make(map[int][]string)}
	mux := http.NewServeMux()
	mux.HandleFunc(repoPath, b.serveReleases)
	mux.HandleFunc("/zipball/", b.serveSnapshot)
	mux.HandleFunc(archivePath, b.serveLandingPage)
	mux.HandleFunc(archivePath+"/files/", b.serveArchiveFile)
	b.server = httptest.NewServer(mux)
	return b
}

func (b *backend) close() {
	b.server.Close()
}

func (b *backend) lastPage() int {
	last := 0
	for n := range b.pages {
		last = max(last, n)
	}
	return last
}

func (b *backend) serveReleases(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseQueries++

	if b.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(b.status)
		fmt.Fprintf(w, `{"message":"%s"}`, http.StatusText(b.status))
		return
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		page, _ = strconv.Atoi(p)
	}
	last := b.lastPage()
	if page < last {
		u := b.server.URL + repoPath
		w.Header().Set("Link", fmt.Sprintf(`<%s?page=%d>; rel="next", <%s?page=%d>; rel="last"`, u, page+1, u, last))
	}

	type release struct {
		TagName    string `json:"tag_name"`
		ZipballURL string `json:"zipball_url"`
	}
	releases := []release{}
	for _, tag := range b.pages[page] {
		releases = append(releases, release{TagName: tag, ZipballURL: b.server.URL + "/zipball/" + tag})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(releases)
}

func (b *backend) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	tag := path.Base(r.URL.Path)
	v, err := version.ParseLenient(tag)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	serveZip(w, "weecology-PortalData-"+tag+"/", v)
}

func (b *backend) serveLandingPage(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	v := b.archiveVer
	b.mu.Unlock()
	if v == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body>
<a href="/records/1215988/export/json">Export</a>
<a href="%s/files/PortalData-%s.zip?download=1">Download</a>
</body></html>`, archivePath, v)
}

func (b *backend) serveArchiveFile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(path.Base(r.URL.Path), ".zip")
	v, err := version.ParseStrict(strings.TrimPrefix(name, "PortalData-"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	serveZip(w, name+"/", v)
}

// serveZip writes a dataset archive with a single top-level directory.
func serveZip(w http.ResponseWriter, top string, v version.VersionCode) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, body string }{
		{"version.txt", v.String() + "\n"},
		{"Rodents/Portal_rodent.csv", "recordID,month,day,year\n1,7,16,1977\n"},
		{"Weather/Portal_weather.csv", "year,month,day,airtemp\n1980,1,1,12.5\n"},
	}
	if _, err := zw.Create(top); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, f := range files {
		fw, err := zw.Create(top + f.name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = fw.Write([]byte(f.body))
	}
	if err := zw.Close(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}
