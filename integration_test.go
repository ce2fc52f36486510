//go:build integration

package main_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const portalrBinaryName = "portalr"

var (
	// Command-line flags for the live run
	pinnedVersion = flag.String("pinned", "1.50.0", "Release to install in the pinned-version test")
	skipDownload  = flag.Bool("skip-download", false, "Skip tests that download the dataset")
)

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(m.Run())
}

// TestIntegration drives a freshly built binary against the live release
// backends. It needs network access; set GITHUB_PAT to avoid rate limits.
func TestIntegration(t *testing.T) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		t.Fatalf("Failed to find project root: %v", err)
	}

	binDir := t.TempDir()
	bin, err := buildPortalrBinary(t, projectRoot, binDir)
	if err != nil {
		t.Fatalf("Failed to build portalr binary: %v", err)
	}
	home := t.TempDir()

	t.Run("versions", func(t *testing.T) {
		stdout := runPortalr(t, bin, home, "versions", "--json")
		var out struct {
			Versions []struct {
				Tag     string `json:"tag"`
				Version string `json:"version"`
			} `json:"versions"`
		}
		if err := json.Unmarshal([]byte(stdout), &out); err != nil {
			t.Fatalf("versions output is not JSON: %v\n%s", err, stdout)
		}
		if len(out.Versions) == 0 {
			t.Fatal("no releases listed")
		}
	})

	t.Run("latest", func(t *testing.T) {
		stdout := runPortalr(t, bin, home, "latest", "--json")
		if !strings.Contains(stdout, `"version"`) {
			t.Errorf("unexpected latest output:\n%s", stdout)
		}
	})

	t.Run("download_pinned_then_check", func(t *testing.T) {
		if *skipDownload {
			t.Skip("downloads disabled")
		}
		data := t.TempDir()
		runPortalr(t, bin, home, "download", "--path", data, "--version", *pinnedVersion)

		marker, err := os.ReadFile(filepath.Join(data, "PortalData", "version.txt"))
		if err != nil {
			t.Fatalf("version marker missing: %v", err)
		}
		if got := strings.TrimSpace(string(marker)); got != *pinnedVersion {
			t.Errorf("marker = %q, want %q", got, *pinnedVersion)
		}

		stdout := runPortalr(t, bin, home, "check", "--path", data, "--json")
		if !strings.Contains(stdout, `"local": "`+*pinnedVersion+`"`) {
			t.Errorf("unexpected check output:\n%s", stdout)
		}
	})
}

// findProjectRoot finds the project root directory (where go.mod is)
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up until we find go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod in any parent directory")
		}
		dir = parent
	}
}

// buildPortalrBinary builds the CLI into dir and returns its path
func buildPortalrBinary(t *testing.T, projectRoot, dir string) (string, error) {
	t.Log("Building portalr binary...")

	out := filepath.Join(dir, portalrBinaryName)
	cmd := exec.Command("go", "build", "-o", out, "./cmd/portalr")
	cmd.Dir = projectRoot

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("go build failed: %w\nStderr: %s", err, stderr.String())
	}
	return out, nil
}

// runPortalr runs the binary with an isolated home and fails the test on a
// non-zero exit.
func runPortalr(t *testing.T, bin, home string, args ...string) string {
	t.Helper()

	cmd := exec.Command(bin, append([]string{"--quiet"}, args...)...)
	cmd.Env = append(os.Environ(), "PORTALR_HOME="+home)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			t.Fatalf("portalr %s: exit %d\n%s", strings.Join(args, " "), ee.ExitCode(), stderr.String())
		}
		t.Fatalf("portalr %s: %v", strings.Join(args, " "), err)
	}
	return stdout.String()
}
