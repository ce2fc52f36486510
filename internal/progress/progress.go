// Package progress renders download progress and spinners on terminals.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// IsTerminalFunc is the function used to check if a file descriptor is a terminal.
// It can be overridden for testing.
var IsTerminalFunc = term.IsTerminal

// lineWidth is the width progress lines are padded to so shorter updates
// overwrite longer ones.
const lineWidth = 80

// minInterval limits redraws.
const minInterval = 100 * time.Millisecond

// Writer wraps an io.Writer with progress tracking and display
type Writer struct {
	writer    io.Writer
	output    io.Writer
	label     string
	total     int64
	written   int64
	startTime time.Time
	lastPrint time.Time
	mu        sync.Mutex
}

// NewWriter creates a progress writer that displays download progress.
// If total is <= 0, no percentage or ETA can be calculated.
func NewWriter(w io.Writer, total int64, output io.Writer) *Writer {
	return &Writer{
		writer:    w,
		output:    output,
		total:     total,
		startTime: time.Now(),
	}
}

// SetLabel sets the text shown before the bar (e.g. the release tag).
func (pw *Writer) SetLabel(label string) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.label = label
}

// Write implements io.Writer and updates progress display
func (pw *Writer) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	if n > 0 {
		pw.mu.Lock()
		pw.written += int64(n)
		pw.maybePrint(time.Now())
		pw.mu.Unlock()
	}
	return n, err
}

// Written returns the number of bytes written so far.
func (pw *Writer) Written() int64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.written
}

// Finish clears the progress line.
func (pw *Writer) Finish() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	fmt.Fprintf(pw.output, "\r%s\r", strings.Repeat(" ", lineWidth))
}

func (pw *Writer) maybePrint(now time.Time) {
	if now.Sub(pw.lastPrint) < minInterval {
		return
	}
	elapsed := now.Sub(pw.startTime).Seconds()
	if elapsed < minInterval.Seconds() {
		return
	}
	pw.lastPrint = now

	speed := float64(pw.written) / elapsed
	_, _ = fmt.Fprint(pw.output, "\r"+pad(renderLine(pw.label, pw.written, pw.total, speed)))
}

// renderLine formats one progress line without the leading carriage return.
func renderLine(label string, written, total int64, speed float64) string {
	prefix := "   "
	if label != "" {
		prefix += label + " "
	}

	if total <= 0 {
		return fmt.Sprintf("%sDownloaded: %s (%s/s)", prefix, formatBytes(written), formatBytes(int64(speed)))
	}

	percent := float64(written) / float64(total) * 100
	if percent > 100 {
		percent = 100
	}

	eta := "--:--"
	if speed > 0 {
		eta = formatDuration(float64(total-written) / speed)
	}

	const barWidth = 30
	filled := min(int(percent/100*barWidth), barWidth)
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}

	return fmt.Sprintf("%s[%s] %3.0f%% (%s/%s) %s/s ETA: %s",
		prefix, bar, percent, formatBytes(written), formatBytes(total), formatBytes(int64(speed)), eta)
}

func pad(line string) string {
	if len(line) < lineWidth {
		return line + strings.Repeat(" ", lineWidth-len(line))
	}
	return line
}

// formatBytes formats bytes into human-readable format
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case b >= GB:
		return fmt.Sprintf("%.1fGB", float64(b)/GB)
	case b >= MB:
		return fmt.Sprintf("%.1fMB", float64(b)/MB)
	case b >= KB:
		return fmt.Sprintf("%.1fKB", float64(b)/KB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}

// formatDuration formats seconds into MM:SS or HH:MM:SS format
func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && IsTerminalFunc(int(f.Fd()))
}

// ShouldShowProgress returns true if progress should be displayed.
// Progress is shown when stderr is a terminal, keeping stdout clean for
// --json output.
func ShouldShowProgress() bool {
	return IsTerminal(os.Stderr)
}
