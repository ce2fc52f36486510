package install

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fdbesanto2/portalr/internal/log"
	"github.com/fdbesanto2/portalr/internal/progress"
)

// download fetches url into a new file in tempDir and returns its path. The
// caller owns the file; on error nothing is left behind.
func (in *Installer) download(ctx context.Context, url string) (path string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	// Zip data gains nothing from transfer encoding.
	req.Header.Set("Accept-Encoding", "identity")

	in.logger.Debug("downloading artifact", "url", log.SanitizeURL(url))
	resp, err := in.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}
	if encoding := resp.Header.Get("Content-Encoding"); encoding != "" && encoding != "identity" {
		return "", fmt.Errorf("compressed responses not supported (got %s)", encoding)
	}

	out, err := os.CreateTemp(in.tempDir, "portalr-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to write file: %w", cerr)
		}
		if err != nil {
			os.Remove(out.Name())
			path = ""
		}
	}()

	var dst io.Writer = out
	if in.progressOutput != nil && resp.ContentLength > 0 {
		pw := progress.NewWriter(out, resp.ContentLength, in.progressOutput)
		defer pw.Finish()
		dst = pw
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return "", fmt.Errorf("incomplete download: got %d of %d bytes", n, resp.ContentLength)
	}

	in.logger.Debug("download completed", "bytes", n, "file", out.Name())
	return out.Name(), nil
}
